package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lucas-stellet/eventsearch"
)

func printRecord(rec *eventsearch.EmbeddingRecord) {
	fmt.Printf("ID:          %s\n", rec.ID)
	fmt.Printf("Name:        %s\n", rec.Name)
	if rec.Description != "" {
		fmt.Printf("Description: %s\n", rec.Description)
	}
	if rec.Source != "" {
		fmt.Printf("Source:      %s\n", rec.Source)
	}
	if rec.ReferenceID != nil {
		fmt.Printf("Reference:   %d\n", *rec.ReferenceID)
	}
	fmt.Printf("Dimensions:  %d\n", len(rec.Embedding))
}

func printDetail(d *eventsearch.EventDetail) {
	fmt.Printf("Source:      %s\n", d.Source)
	fmt.Printf("Reference:   %d\n", d.ReferenceID)
	fmt.Printf("Name:        %s\n", d.Name)
	if d.Description != "" {
		fmt.Printf("Description: %s\n", d.Description)
	}
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		if k != "nombre" && k != "descripcion" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, d.Fields[k])
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func eventFromRecord(rec *eventsearch.EmbeddingRecord) *eventsearch.Event {
	return &eventsearch.Event{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Source:      rec.Source,
		ReferenceID: rec.ReferenceID,
	}
}
