// Command ssrvet runs the rules of a rules file as a go/analysis pass,
// so they can be driven by go vet -vettool.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/gnoswap-labs/ssr/analyzer"
)

func main() { singlechecker.Main(analyzer.Analyzer) }
