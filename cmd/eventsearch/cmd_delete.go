package main

import (
	"context"
	"flag"
	"fmt"
)

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: eventsearch delete ID [ID...]")
	}

	ctx := context.Background()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, id := range fs.Args() {
		if err := svc.Remove(ctx, id); err != nil {
			return fmt.Errorf("delete %q: %w", id, err)
		}
		fmt.Printf("  - %s\n", id)
	}
	fmt.Printf("Deleted %d record(s).\n", fs.NArg())
	return nil
}
