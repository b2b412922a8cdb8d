package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/posts"
)

// PostsCmd implements the 'posts' command.
type PostsCmd struct {
	Drafts   bool   `help:"Include draft posts"`
	Tag      string `help:"Only list posts carrying this tag"`
	Category string `help:"Only list posts in this category"`
	JSON     bool   `name:"json" help:"Print JSON instead of a table"`
}

// postJSON is the JSON form of a post record.
type postJSON struct {
	Title    string   `json:"title"`
	Docname  string   `json:"docname"`
	Anchor   string   `json:"anchor"`
	Date     string   `json:"date"`
	Author   string   `json:"author"`
	Tags     []string `json:"tags"`
	Category string   `json:"category,omitempty"`
	Draft    bool     `json:"draft"`
}

func (p *PostsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	// Listing posts never publishes anything.
	cfg.Notify.NATS = nil

	runner, err := newRunner(cfg, g, nil)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	env, err := runner.Environment(context.Background())
	if err != nil {
		return err
	}
	if env == nil {
		return errors.NewError(errors.CategoryNotFound, "no saved build").
			WithContext("hint", "run 'docblog build' first").
			Build()
	}

	env.Posts.SortByDateDesc()
	records := p.filter(env.Posts.Records())
	if p.JSON {
		return p.writeJSON(root, records)
	}
	return p.writeTable(root, records)
}

func (p *PostsCmd) filter(records []*posts.Record) []*posts.Record {
	out := make([]*posts.Record, 0, len(records))
	for _, r := range records {
		if r.Draft && !p.Drafts {
			continue
		}
		if p.Tag != "" && !slices.Contains(r.Tags, p.Tag) {
			continue
		}
		if p.Category != "" && r.Category != p.Category {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (p *PostsCmd) writeJSON(root *CLI, records []*posts.Record) error {
	out := make([]postJSON, 0, len(records))
	for _, r := range records {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, postJSON{
			Title:    r.DisplayTitle(),
			Docname:  r.Docname,
			Anchor:   r.Anchor,
			Date:     r.Date.Format(posts.SourceDateLayout),
			Author:   r.Author,
			Tags:     tags,
			Category: r.Category,
			Draft:    r.Draft,
		})
	}
	enc := json.NewEncoder(root.stdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (p *PostsCmd) writeTable(root *CLI, records []*posts.Record) error {
	tw := tabwriter.NewWriter(root.stdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DATE\tTITLE\tAUTHOR\tCATEGORY\tTAGS\tDOCUMENT")
	for _, r := range records {
		title := r.DisplayTitle()
		if r.Draft {
			title += " (draft)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s#%s\n",
			r.Date.Format(posts.SourceDateLayout), title, r.Author, r.Category,
			strings.Join(r.Tags, ", "), r.Docname, r.Anchor)
	}
	return tw.Flush()
}
