// Package salesdash provides sales analytics over tabular datasets.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/salesdash/dataset"
//	    "github.com/spektr-org/salesdash/resolver"
//	)
//
//	ds, err := dataset.LoadFile("sales.csv", dataset.WithVariant(dataset.VariantSales))
//	answer := resolver.New().Resolve("total in Q1 2022", ds, ds.Measure())
//
// The dataset package loads a CSV once and attaches derived temporal fields
// (year, month, quarter, day). The resolver answers keyword questions over it
// with no external calls. The rag package is the optional retrieval fallback,
// and dashboard computes the metric and chart series shown to users.
//
// cmd/salesdash wraps all of it in a CLI; `salesdash serve` exposes the same
// operations over the JSON API in package server.
package salesdash
