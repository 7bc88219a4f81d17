package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/lucas-stellet/eventsearch"
)

func runEvent(args []string) error {
	fs := flag.NewFlagSet("event", flag.ContinueOnError)
	id := fs.String("id", "", "document id (default: generated)")
	name := fs.String("name", "", "event name")
	description := fs.String("description", "", "event description")
	source := fs.String("source", "eventos", "source table or origin of the event")
	var ref optionalInt64
	fs.Var(&ref, "ref", "identifier of the event in its source")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" && *description == "" {
		return fmt.Errorf("usage: eventsearch event -name NAME [-description TEXT] [-source S] [-ref N]")
	}

	ctx := context.Background()
	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ev := &eventsearch.Event{
		ID:          *id,
		Name:        *name,
		Description: *description,
		Source:      *source,
		ReferenceID: ref.v,
	}
	if err := svc.AddEvent(ctx, ev); err != nil {
		return err
	}
	fmt.Printf("Indexed event %s\n", ev.ID)
	return nil
}
