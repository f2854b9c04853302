// Package template holds the data model of a generation request: the ordered JSON
// template tree, the closed type-tag vocabulary, per-path bounds and default
// literals, and the parsers that turn client control messages into a Config.
//
// Paths address template nodes: the root is "", member f of p is "p.f" and element i
// of p is "p[i]". Lookups try the exact path first and then the path with every index
// rewritten to [0], so one declaration under "items[0]" covers all elements.
package template
