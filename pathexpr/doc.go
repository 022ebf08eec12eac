// Package pathexpr resolves dot and bracket paths such as
// data.items[0]["display-name"] against decoded JSON documents. Paths are
// compiled to gojq queries.
package pathexpr
