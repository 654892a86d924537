package hclgraph

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot decodes the top level of a graph file.
type fileRoot struct {
	Graphs []*graphBlock `hcl:"graph,block"`
}

// graphBlock holds the graph attributes; element and member blocks stay in
// Remain and are walked in source order.
type graphBlock struct {
	Name     string            `hcl:"name,label"`
	ID       string            `hcl:"id"`
	NextID   int               `hcl:"next_id"`
	Metadata map[string]string `hcl:"metadata,optional"`
	Remain   hcl.Body          `hcl:",remain"`
}

type stateBlock struct {
	Type      hcl.Expression `hcl:"type"`
	Default   *cty.Value     `hcl:"default,optional"`
	Modifiers []string       `hcl:"modifiers,optional"`
}

type paramBlock struct {
	Name string         `hcl:"name,label"`
	Type hcl.Expression `hcl:"type"`
}

type functionBlock struct {
	ID      int            `hcl:"id"`
	Returns hcl.Expression `hcl:"returns,optional"`
	Params  []*paramBlock  `hcl:"param,block"`
}

type constructorBlock struct {
	ID int `hcl:"id"`
}

type groupBlock struct {
	ID     int `hcl:"id"`
	Parent int `hcl:"parent"`
}

type nodeBlock struct {
	ID       int        `hcl:"id"`
	Parent   int        `hcl:"parent"`
	Kind     string     `hcl:"kind"`
	Auto     bool       `hcl:"auto,optional"`
	Settings *cty.Value `hcl:"settings,optional"`
	Inputs   *cty.Value `hcl:"inputs,optional"`
}

type connectionBlock struct {
	ID    int    `hcl:"id"`
	From  string `hcl:"from"`
	To    string `hcl:"to"`
	Proxy bool   `hcl:"proxy,optional"`
}
