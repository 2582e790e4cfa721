// Command novatable inspects a novatable database location: its tables,
// their rows and the page files behind them.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/zeebo/blake3"

	"github.com/tuannm99/novatable/internal"
	"github.com/tuannm99/novatable/internal/alias/util"
	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/engine"
	"github.com/tuannm99/novatable/internal/storage"
)

type Globals struct {
	Config string `name:"config" short:"c" help:"YAML config file" type:"path"`
	Data   string `name:"data" short:"d" help:"Database location, overrides the config" type:"path"`
}

var CLI struct {
	Globals

	Tables TablesCmd `cmd:"" help:"List tables with their schema and pages"`
	Dump   DumpCmd   `cmd:"" help:"Print every row of a table in primary-key order"`
	Page   PageCmd   `cmd:"" help:"Decode one page file of a table"`
	Verify VerifyCmd `cmd:"" help:"Check every page file against the catalog"`
}

func (g *Globals) config() (*internal.NovaTableConfig, error) {
	cfg, err := internal.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Data != "" {
		cfg.Storage.Location = g.Data
	}
	return cfg, nil
}

// open loads the catalog and page store without claiming the location.
func (g *Globals) open() (*catalog.Catalog, *storage.FileStore, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}
	cat, err := catalog.Load(cfg.Storage.Location)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog at %s: %w", cfg.Storage.Location, err)
	}
	store, err := storage.NewFileStore(cfg.Storage.Location)
	if err != nil {
		return nil, nil, err
	}
	return cat, store, nil
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type TablesCmd struct{}

func (c *TablesCmd) Run(g *Globals) error {
	cat, _, err := g.open()
	if err != nil {
		return err
	}
	fmt.Printf("Location: %s (page size %d, buffer %d)\n", cat.Location(), cat.PageSize(), cat.BufferSize())
	for _, t := range cat.Tables() {
		attrs := make([]string, 0, t.NumAttributes())
		for _, a := range t.Attributes() {
			attrs = append(attrs, a.String())
		}
		fmt.Printf("%s(%s)\n", t.Name(), strings.Join(attrs, ", "))
		fmt.Printf("  primary key: %s\n", t.PrimaryKey().Name)
		if fk, ok := t.ForeignKey(); ok {
			fmt.Printf("  foreign key: %s -> %s.%s\n", fk.AttrName, fk.RefTable, fk.RefAttribute)
		}
		if ix := t.IndexedAttributes(); len(ix) > 0 {
			fmt.Printf("  indexes: %s\n", strings.Join(ix, ", "))
		}
		fmt.Printf("  pages: %v\n", t.PageIDs())
	}
	return nil
}

type DumpCmd struct {
	Table string `arg:"" help:"Table name"`
}

func (c *DumpCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	logger, err := internal.NewLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	e, err := engine.Open(cfg.EngineOptions(logger))
	if err != nil {
		return err
	}
	defer util.CloseFunc(e, "engine")

	if _, ok := e.Table(c.Table); !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, c.Table)
	}
	recs := e.GetRecords(c.Table)
	if recs == nil {
		return fmt.Errorf("could not read %s", c.Table)
	}
	for _, r := range recs {
		fmt.Println(r)
	}
	fmt.Printf("(%d rows)\n", len(recs))
	return nil
}

type PageCmd struct {
	Table string `arg:"" help:"Table name"`
	ID    uint32 `arg:"" help:"Page id"`
}

func (c *PageCmd) Run(g *Globals) error {
	cat, store, err := g.open()
	if err != nil {
		return err
	}
	t, ok := cat.Table(c.Table)
	if !ok {
		return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, c.Table)
	}
	if t.PagePosition(c.ID) < 0 {
		return fmt.Errorf("%w: %d in %s", catalog.ErrNoSuchPage, c.ID, t.Name())
	}

	data, err := store.ReadPage(c.ID)
	if err != nil {
		return err
	}
	p, err := storage.DecodePage(t, t.Attributes(), data, cat.PageSize())
	if err != nil {
		return err
	}
	fmt.Printf("page %d of %s: %d rows, %d of %d bytes\n", p.ID(), t.Name(), p.Len(), p.Size(), p.Budget())
	fmt.Printf("blake3 %s\n", digest(data))
	for slot, r := range p.Records() {
		fmt.Printf("%4d %s\n", slot, r)
	}
	return nil
}

type VerifyCmd struct{}

func (c *VerifyCmd) Run(g *Globals) error {
	cat, store, err := g.open()
	if err != nil {
		return err
	}
	rep, err := verify(cat, store)
	if err != nil {
		return err
	}
	for _, pr := range rep.Pages {
		status := "ok"
		if pr.Problem != "" {
			status = "FAIL " + pr.Problem
		}
		fmt.Printf("%-12s %6d %s %s\n", pr.Table, pr.ID, pr.Digest, status)
	}
	for _, id := range rep.Orphans {
		fmt.Printf("orphan page file %d\n", id)
	}
	if n := rep.Failures(); n > 0 {
		return fmt.Errorf("%d problems found", n)
	}
	fmt.Println("all pages verified")
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("novatable"),
		kong.Description("Inspect novatable database locations"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
