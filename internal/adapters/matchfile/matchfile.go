// Package matchfile loads historical ball-by-ball match files.
//
// Two layouts are understood. The legacy one keys each innings by name and
// each delivery by its "over.ball" label:
//
//	innings:
//	  - 1st innings:
//	      team: India
//	      deliveries:
//	        - 0.1: {batsman: ..., bowler: ..., runs: {total: 4}, wicket: {...}}
//
// The modern one lists overs and labels deliveries by position:
//
//	innings:
//	  - team: India
//	    overs:
//	      - over: 0
//	        deliveries:
//	          - {batter: ..., bowler: ..., runs: {total: 4}, wickets: [...]}
package matchfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/chase/internal/domain/model"
)

// Extensions lists the file suffixes Discover picks up.
var Extensions = []string{".json", ".yaml", ".yml"}

// Load reads and decodes one match file. The file stem is the match id when
// the document carries none.
func Load(path string) (model.Match, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Match{}, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := decode(raw)
	if err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := FromDocument(doc, stem)
	if err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Discover lists match files directly under dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range Extensions {
			if ext == want {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// FromDocument converts a decoded match document.
func FromDocument(doc map[string]any, fallbackID string) (model.Match, error) {
	info, _ := object(doc["info"])

	m := model.Match{
		ID:         matchID(info),
		Date:       matchDate(info),
		Winner:     Winner(doc),
		OversLimit: oversLimit(info),
	}
	if m.ID == "" {
		m.ID = fallbackID
	}

	raw, present := doc["innings"]
	if !present || raw == nil {
		return m, nil
	}
	innings, ok := list(raw)
	if !ok {
		return model.Match{}, fmt.Errorf("%w: innings is %T, want a list", ErrBadRecord, raw)
	}
	for i, item := range innings {
		inn, err := parseInnings(item)
		if err != nil {
			return model.Match{}, fmt.Errorf("innings %d: %w", i+1, err)
		}
		m.Innings = append(m.Innings, inn)
	}
	return m, nil
}

// Winner looks for the winning team in the places match files record it.
func Winner(doc map[string]any) string {
	if oc, ok := object(doc["outcome"]); ok {
		if w := text(oc["winner"]); w != "" {
			return w
		}
	}
	if info, ok := object(doc["info"]); ok {
		if oc, ok := object(info["outcome"]); ok {
			if w := text(oc["winner"]); w != "" {
				return w
			}
		}
		if w := text(info["winner"]); w != "" {
			return w
		}
	}
	for _, k := range []string{"winner", "result", "match_winner"} {
		if w, ok := doc[k].(string); ok {
			return w
		}
	}
	return ""
}

func matchID(info map[string]any) string {
	if id := text(info["match_id"]); id != "" {
		return id
	}
	return text(info["id"])
}

func matchDate(info map[string]any) string {
	for _, k := range []string{"dates", "date", "start_date"} {
		v, ok := info[k]
		if !ok || v == nil {
			continue
		}
		if ds, ok := list(v); ok {
			if len(ds) == 0 {
				continue
			}
			return text(ds[0])
		}
		return text(v)
	}
	return ""
}

func oversLimit(info map[string]any) int {
	if f, ok := number(info["overs"]); ok && f >= 1 {
		return int(f)
	}
	return model.DefaultOversLimit
}

func parseInnings(item any) (model.Innings, error) {
	obj, ok := object(item)
	if !ok {
		return model.Innings{}, fmt.Errorf("%w: innings entry is %T", ErrBadRecord, item)
	}
	body := obj
	if !isInningsBody(obj) {
		// legacy: {"1st innings": {...}}
		if len(obj) != 1 {
			return model.Innings{}, fmt.Errorf("%w: innings entry has %d keys", ErrBadRecord, len(obj))
		}
		for _, v := range obj {
			if body, ok = object(v); !ok {
				return model.Innings{}, fmt.Errorf("%w: innings body is %T", ErrBadRecord, v)
			}
		}
	}

	inn := model.Innings{Team: text(body["team"])}
	var err error
	switch {
	case body["overs"] != nil:
		inn.Deliveries, err = parseOvers(body["overs"])
	case body["deliveries"] != nil:
		inn.Deliveries, err = parseKeyedDeliveries(body["deliveries"])
	}
	if err != nil {
		return model.Innings{}, err
	}
	return inn, nil
}

func isInningsBody(obj map[string]any) bool {
	for _, k := range []string{"team", "overs", "deliveries"} {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func parseKeyedDeliveries(v any) ([]model.Delivery, error) {
	items, ok := list(v)
	if !ok {
		return nil, fmt.Errorf("%w: deliveries is %T", ErrBadRecord, v)
	}
	out := make([]model.Delivery, 0, len(items))
	for i, item := range items {
		obj, ok := object(item)
		if !ok {
			return nil, fmt.Errorf("%w: delivery %d is %T", ErrBadRecord, i, item)
		}
		// one label per entry; sort keeps odd multi-key entries stable
		labels := make([]string, 0, len(obj))
		for k := range obj {
			labels = append(labels, k)
		}
		sort.Strings(labels)
		for _, label := range labels {
			d, err := parseDelivery(label, obj[label])
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}

func parseOvers(v any) ([]model.Delivery, error) {
	overs, ok := list(v)
	if !ok {
		return nil, fmt.Errorf("%w: overs is %T", ErrBadRecord, v)
	}
	var out []model.Delivery
	for i, o := range overs {
		over, ok := object(o)
		if !ok {
			return nil, fmt.Errorf("%w: over %d is %T", ErrBadRecord, i, o)
		}
		num := i
		if f, ok := number(over["over"]); ok {
			num = int(f)
		}
		balls, ok := list(over["deliveries"])
		if !ok {
			return nil, fmt.Errorf("%w: over %d has no deliveries list", ErrBadRecord, num)
		}
		for j, b := range balls {
			d, err := parseDelivery(strconv.Itoa(num)+"."+strconv.Itoa(j+1), b)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}

func parseDelivery(label string, v any) (model.Delivery, error) {
	obj, ok := object(v)
	if !ok {
		return model.Delivery{}, fmt.Errorf("%w: ball %s is %T", ErrBadRecord, label, v)
	}
	d := model.Delivery{
		Label:   label,
		Batsman: text(obj["batsman"]),
		Bowler:  text(obj["bowler"]),
		Wicket:  truthy(obj["wicket"]) || truthy(obj["wickets"]),
	}
	if d.Batsman == "" {
		d.Batsman = text(obj["batter"])
	}
	if runs, ok := object(obj["runs"]); ok {
		if raw, present := runs["total"]; present {
			f, ok := number(raw)
			if !ok {
				return model.Delivery{}, fmt.Errorf("%w: ball %s runs.total is %T", ErrBadRecord, label, raw)
			}
			d.Runs = int(f)
		}
	}
	return d, nil
}
