package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kbukum/rxkit/validation"
)

// Order is the item type the replay scripts edit.
type Order struct {
	ID     string  `mapstructure:"id" json:"id"`
	Region string  `mapstructure:"region" json:"region"`
	Total  float64 `mapstructure:"total" json:"total"`
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %.2f", o.ID, o.Region, o.Total)
}

// View kinds.
const (
	KindOrder = "order"
	KindGroup = "group"
)

// Step operations.
const (
	OpAppend = "append"
	OpInsert = "insert"
	OpSet    = "set"
	OpRemove = "remove"
	OpReset  = "reset"
)

// ViewSpec declares one derived view of the order list.
type ViewSpec struct {
	Name       string `mapstructure:"name" validate:"required"`
	Kind       string `mapstructure:"kind" validate:"required,oneof=order group"`
	Key        string `mapstructure:"key" validate:"required,oneof=id region total"`
	Descending bool   `mapstructure:"descending"`
}

// Step is one edit applied to the order list.
type Step struct {
	Op    string  `mapstructure:"op" validate:"required,oneof=append insert set remove reset"`
	Index int     `mapstructure:"index" validate:"gte=0"`
	Item  Order   `mapstructure:"item"`
	Items []Order `mapstructure:"items"`
}

// Script is a replay file: the views to maintain and the edits to apply.
type Script struct {
	Views []ViewSpec `mapstructure:"views" validate:"required,min=1,dive"`
	Steps []Step     `mapstructure:"steps" validate:"dive"`
}

// LoadScript reads a YAML (or JSON/TOML) script and validates it.
func LoadScript(path string) (*Script, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	var s Script
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode script %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the tags and the rules that depend on a step's op.
func (s *Script) Validate() error {
	v := validation.New()
	v.Merge("script", validation.Validate(s))

	names := make(map[string]bool, len(s.Views))
	for i, vs := range s.Views {
		field := fmt.Sprintf("views[%d]", i)
		v.Custom(!names[vs.Name], field+".name", "duplicate view name "+vs.Name)
		names[vs.Name] = true
		v.Custom(vs.Kind != KindGroup || vs.Key != "total", field+".key", "group views need a discrete key (id or region)")
	}
	for i, st := range s.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		switch st.Op {
		case OpAppend, OpInsert, OpSet:
			validateOrder(v, field+".item", st.Item)
		case OpReset:
			for j, item := range st.Items {
				validateOrder(v, fmt.Sprintf("%s.items[%d]", field, j), item)
			}
		}
	}
	return v.Validate()
}

func validateOrder(v *validation.Validator, field string, o Order) {
	v.Required(field+".id", o.ID)
	v.Required(field+".region", o.Region)
	v.Custom(o.Total >= 0, field+".total", "must not be negative")
}
