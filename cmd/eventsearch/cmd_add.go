package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/lucas-stellet/eventsearch"
)

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "event name")
	description := fs.String("description", "", "event description")
	source := fs.String("source", "eventos", "source table or origin of the event")
	var ref optionalInt64
	fs.Var(&ref, "ref", "identifier of the event in its source")
	alsoIndex := fs.Bool("index", false, "also add the event to the full-text index")
	jsonFlag := fs.Bool("json", false, "output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" && *description == "" {
		return fmt.Errorf("usage: eventsearch add -name NAME [-description TEXT] [-source S] [-ref N] [-index]")
	}

	ctx := context.Background()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := svc.AddRecord(ctx, eventsearch.NewRecord{
		Name:        *name,
		Description: *description,
		Source:      *source,
		ReferenceID: ref.v,
	})
	if err != nil {
		return err
	}

	if *alsoIndex {
		ev := eventFromRecord(rec)
		if err := svc.AddEvent(ctx, ev); err != nil {
			return err
		}
	}

	if *jsonFlag {
		return printJSON(rec)
	}
	printRecord(rec)
	return nil
}
