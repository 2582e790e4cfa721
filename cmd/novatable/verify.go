package main

import (
	"fmt"

	"github.com/tuannm99/novatable/internal/catalog"
	"github.com/tuannm99/novatable/internal/record"
	"github.com/tuannm99/novatable/internal/storage"
)

type pageReport struct {
	Table   string
	ID      uint32
	Digest  string
	Problem string
}

type report struct {
	Pages   []pageReport
	Orphans []uint32
}

func (r *report) Failures() int {
	n := len(r.Orphans)
	for _, p := range r.Pages {
		if p.Problem != "" {
			n++
		}
	}
	return n
}

// verify decodes every page of every table in page-list order and checks
// the budget, the stored id and that primary keys keep rising across the
// table. Page files no table owns are reported as orphans.
func verify(cat *catalog.Catalog, store *storage.FileStore) (*report, error) {
	rep := &report{}
	owned := map[uint32]bool{}

	for _, t := range cat.Tables() {
		var prev record.Value
		for _, id := range t.PageIDs() {
			owned[id] = true
			pr := pageReport{Table: t.Name(), ID: id}

			data, err := store.ReadPage(id)
			if err != nil {
				pr.Problem = err.Error()
				rep.Pages = append(rep.Pages, pr)
				continue
			}
			pr.Digest = digest(data)

			p, err := storage.DecodePage(t, t.Attributes(), data, cat.PageSize())
			switch {
			case err != nil:
				pr.Problem = err.Error()
			case p.ID() != id:
				pr.Problem = fmt.Sprintf("header holds id %d", p.ID())
			case !p.HasSpace():
				pr.Problem = fmt.Sprintf("%d bytes exceeds budget %d", p.Size(), p.Budget())
			default:
				for _, k := range p.PrimaryKeys() {
					if !prev.IsNull() && record.Compare(prev, k) >= 0 {
						pr.Problem = fmt.Sprintf("key %s after %s", k, prev)
						break
					}
					prev = k
				}
			}
			rep.Pages = append(rep.Pages, pr)
		}
	}

	ids, err := store.ListIDs()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !owned[id] {
			rep.Orphans = append(rep.Orphans, id)
		}
	}
	return rep, nil
}
