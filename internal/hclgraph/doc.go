// Package hclgraph reads and writes the HCL description of a graph.
//
// A file holds one or more graph blocks:
//
//	graph "hello" {
//	  id      = "4b0f..."
//	  next_id = 6
//
//	  variable "count" {
//	    type    = number
//	    default = 0
//	  }
//
//	  node "core.event" {
//	    id       = 2
//	    parent   = 1
//	    kind     = "core.event"
//	    settings = { event = "start" }
//	  }
//
//	  connection {
//	    id   = 4
//	    from = "2.out"
//	    to   = "3.in"
//	  }
//	}
//
// Element blocks (group, node, function, constructor) appear in element tree
// pre-order, so the file order is the sibling order. Every id is kept on
// load, and next_id keeps ids from being reused. The encoding is
// deterministic: encoding the same graph twice yields identical bytes, which
// is what the content hash of generated code is computed over.
package hclgraph
