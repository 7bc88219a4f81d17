package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/lucas-stellet/eventsearch"
)

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	kFlag := fs.Int("k", 0, "number of nearest neighbors (0 = config default)")
	var maxDistance optionalFloat
	fs.Var(&maxDistance, "max-distance", "discard neighbors farther than this distance")
	fallbackFlag := fs.String("fallback", "", "keyword text for the fallback (default: the query)")
	noFallback := fs.Bool("no-fallback", false, "disable the keyword fallback")
	detailsFlag := fs.Bool("details", false, "load each hit's row from its source table")
	jsonFlag := fs.Bool("json", false, "output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: eventsearch search \"query\" [-k N] [-max-distance D] [-fallback text] [-no-fallback] [-details] [-json]")
	}
	query := fs.Arg(0)

	ctx := context.Background()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := svc.Search(ctx, eventsearch.SearchRequest{
		Text:         query,
		TopK:         *kFlag,
		MaxDistance:  maxDistance.v,
		FallbackText: *fallbackFlag,
		NoFallback:   *noFallback,
	})
	if err != nil {
		return err
	}

	if *detailsFlag {
		details, err := svc.Details(ctx, results)
		if err != nil {
			return err
		}
		if *jsonFlag {
			return printJSON(details)
		}
		for i := range details {
			if i > 0 {
				fmt.Println()
			}
			printDetail(&details[i])
		}
		if len(details) == 0 {
			fmt.Printf("No source rows found for %q.\n", query)
		}
		return nil
	}

	if *jsonFlag {
		return printJSON(results)
	}
	fmt.Print(eventsearch.FormatResults(query, results))
	if len(results) == 0 {
		fmt.Println()
	}
	return nil
}
