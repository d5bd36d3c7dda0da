package main

import (
	"context"
	"fmt"

	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/pkg/client"
)

// command implements the remote CLI operations against a running daemon.
type command struct{}

func newClient(flags LinkFlags) *client.Client {
	cfg := client.DefaultConfig()
	if flags.APIUrl != "" {
		cfg.BaseURL = flags.APIUrl
	}
	if flags.APITimeout > 0 {
		cfg.Timeout = flags.APITimeout
	}
	return client.New(cfg)
}

func (command) Create(flags LinkFlags) error {
	cl := newClient(flags)
	resp, err := cl.CreateLink(context.Background(), flags.Name)
	if err != nil {
		return err
	}
	fmt.Printf("created %s  name=%q  share=%s\n", resp.ID, resp.Name, resp.Link)
	return nil
}

func (command) List(flags LinkFlags) error {
	cl := newClient(flags)
	links, err := cl.Links(context.Background())
	if err != nil {
		return err
	}
	if len(links) == 0 {
		fmt.Println("no tracking links")
		return nil
	}
	for _, l := range links {
		fmt.Println(formatLink(l))
	}
	return nil
}

func (command) Rename(flags LinkFlags) error {
	cl := newClient(flags)
	l, err := cl.RenameLink(context.Background(), flags.ID, flags.Name)
	if err != nil {
		return err
	}
	fmt.Printf("renamed %s  name=%q\n", l.ID, l.Name)
	return nil
}

func (command) Delete(flags LinkFlags) error {
	cl := newClient(flags)
	if err := cl.DeleteLink(context.Background(), flags.ID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", flags.ID)
	return nil
}

func (command) History(flags LinkFlags) error {
	cl := newClient(flags)
	samples, err := cl.History(context.Background(), flags.ID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Println("no positions recorded")
		return nil
	}
	for _, s := range samples {
		fmt.Printf("%s  lat=%.6f lon=%.6f", s.Timestamp.Format("2006-01-02 15:04:05"), s.Latitude, s.Longitude)
		if s.Accuracy > 0 {
			fmt.Printf(" accuracy=%.1f", s.Accuracy)
		}
		if s.Speed > 0 {
			fmt.Printf(" speed=%.1f", s.Speed)
		}
		fmt.Println()
	}
	return nil
}

func (command) Ingest(flags LinkFlags, in IngestFlags) error {
	cl := newClient(flags)
	coords := link.Coords{
		Latitude:  in.Lat,
		Longitude: in.Lon,
		Accuracy:  in.Accuracy,
		Speed:     in.Speed,
		Heading:   in.Heading,
	}
	if err := cl.Ingest(context.Background(), flags.ID, coords); err != nil {
		return err
	}
	fmt.Printf("reported lat=%.6f lon=%.6f for %s\n", in.Lat, in.Lon, flags.ID)
	return nil
}

func formatLink(l link.Link) string {
	state := "inactive"
	if l.IsActive {
		state = "active"
	}
	seen := "never"
	if l.LastSeen != nil {
		seen = l.LastSeen.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("%s  name=%q  %s  last-seen=%s  positions=%d", l.ID, l.Name, state, seen, len(l.Locations))
}
