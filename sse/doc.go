// Package sse publishes live views to HTTP clients as Server-Sent Events.
//
// A Hub tracks connected clients by topic. A Feed subscribes to a change
// stream, keeps a mirror of the list it describes and broadcasts every
// change to the clients of its topic. A newly connected client first
// receives a reset followed by the current contents as add events, then
// the live changes, so replaying the frames always reproduces the list.
//
//	hub := sse.NewHub()
//	feed := sse.NewFeed("orders", view.OrderBy(list.Changes(), byTotal), hub)
//	server := sse.NewServer(cfg.SSE, hub)
//	server.Mount(feed)
package sse
