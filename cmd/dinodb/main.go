package main

import (
	"flag"
	"fmt"

	"dinodb/pkg/config"
	"dinodb/pkg/hash"
	"dinodb/pkg/list"
	"dinodb/pkg/pager"
	"dinodb/pkg/repl"

	"github.com/google/uuid"
)

// Start the database.
func main() {
	// Set up flags.
	var promptFlag = flag.Bool("c", true, "use prompt?")
	var projectFlag = flag.String("project", "", "choose project: [go,pager,hash] (required)")
	flag.Parse()

	prompt := config.GetPrompt(*promptFlag)
	repls := make([]*repl.REPL, 0)

	switch *projectFlag {
	case "go":
		l := list.NewList()
		repls = append(repls, list.ListRepl(l))

	case "pager":
		pRepl, err := pager.PagerRepl()
		if err != nil {
			fmt.Println(err)
			return
		}
		repls = append(repls, pRepl)

	case "hash":
		hRepl, err := hash.HashRepl()
		if err != nil {
			fmt.Println(err)
			return
		}
		repls = append(repls, hRepl)

	default:
		fmt.Println("must specify -project [go,pager,hash]")
		return
	}

	r, err := repl.CombineRepls(repls)
	if err != nil {
		fmt.Println(err)
		return
	}
	r.Run(uuid.New(), prompt, nil, nil)
}
