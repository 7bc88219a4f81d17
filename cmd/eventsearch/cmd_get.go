package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
)

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	recordFlag := fs.String("record", "", "show a stored embedding record by ID instead")
	jsonFlag := fs.Bool("json", false, "output as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	if *recordFlag != "" {
		svc, cleanup, err := newService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		rec, err := svc.Record(ctx, *recordFlag)
		if err != nil {
			return fmt.Errorf("get record %q: %w", *recordFlag, err)
		}
		if *jsonFlag {
			return printJSON(rec)
		}
		printRecord(rec)
		return nil
	}

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: eventsearch get SOURCE ID [-json] | eventsearch get -record ID")
	}
	source := fs.Arg(0)
	refID, err := strconv.ParseInt(fs.Arg(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", fs.Arg(1), err)
	}

	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := svc.Detail(ctx, source, refID)
	if err != nil {
		return fmt.Errorf("get %s %d: %w", source, refID, err)
	}
	if *jsonFlag {
		return printJSON(d)
	}
	printDetail(d)
	return nil
}
