// Package baseline records accepted findings by fingerprint so later scans
// only report what is new.
package baseline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/model"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/safefile"
)

const (
	Version = 1
	Tool    = "mcp-safety-scanner"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Entry struct {
	Fingerprint string         `json:"fingerprint"`
	RuleID      string         `json:"ruleId"`
	Severity    model.Severity `json:"severity"`
	File        string         `json:"file"`
	Excerpt     string         `json:"excerpt"`
	Context     string         `json:"context,omitempty"`
}

// Document is the persisted baseline. Fingerprints and Entries have the same
// length and order.
type Document struct {
	Version      int      `json:"version"`
	Tool         string   `json:"tool"`
	GeneratedAt  string   `json:"generatedAt"`
	Fingerprints []string `json:"fingerprints"`
	Entries      []Entry  `json:"entries"`
}

// Set is a loaded baseline. A nil Set suppresses nothing.
type Set map[string]struct{}

func (s Set) Has(fingerprint string) bool {
	_, ok := s[fingerprint]
	return ok
}

// Fingerprint identifies a finding by rule, file and excerpt. Line numbers
// are left out so edits elsewhere in the file do not invalidate it.
func Fingerprint(f model.Finding) string {
	h := sha256.New()
	h.Write([]byte(f.RuleID))
	h.Write([]byte("\n"))
	h.Write([]byte(f.File))
	h.Write([]byte("\n"))
	h.Write([]byte(f.Excerpt))
	return hex.EncodeToString(h.Sum(nil))
}

// Build dedupes findings by fingerprint, keeping the first occurrence, and
// orders the result by fingerprint.
func Build(findings []model.Finding, now time.Time) Document {
	byFingerprint := make(map[string]Entry, len(findings))
	for _, f := range findings {
		fp := Fingerprint(f)
		if _, seen := byFingerprint[fp]; seen {
			continue
		}
		byFingerprint[fp] = Entry{
			Fingerprint: fp,
			RuleID:      f.RuleID,
			Severity:    f.Severity,
			File:        f.File,
			Excerpt:     f.Excerpt,
			Context:     f.Context,
		}
	}

	fingerprints := make([]string, 0, len(byFingerprint))
	for fp := range byFingerprint {
		fingerprints = append(fingerprints, fp)
	}
	sort.Strings(fingerprints)

	entries := make([]Entry, 0, len(fingerprints))
	for _, fp := range fingerprints {
		entries = append(entries, byFingerprint[fp])
	}
	return Document{
		Version:      Version,
		Tool:         Tool,
		GeneratedAt:  now.UTC().Format(timestampLayout),
		Fingerprints: fingerprints,
		Entries:      entries,
	}
}

// Write builds a baseline from findings and persists it atomically.
func Write(path string, findings []model.Finding, now time.Time) (Document, error) {
	doc := Build(findings, now)
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Document{}, fmt.Errorf("encode baseline: %w", err)
	}
	raw = append(raw, '\n')
	if err := safefile.WriteFileAtomic(path, raw, 0o644); err != nil {
		return Document{}, fmt.Errorf("write baseline %s: %w", path, err)
	}
	return doc, nil
}

// Load reads the fingerprints of a baseline file. Only the fingerprints
// array is required; other fields are informational.
func Load(path string) (Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: baseline %s: %w", fault.ErrReadFailure, path, err)
	}
	return Parse(raw)
}

// Parse decodes baseline content.
func Parse(raw []byte) (Set, error) {
	var doc struct {
		Fingerprints json.RawMessage `json:"fingerprints"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid baseline JSON: %w", fault.ErrInvalidJSON, err)
	}
	if len(doc.Fingerprints) == 0 || bytes.Equal(doc.Fingerprints, []byte("null")) {
		return nil, fmt.Errorf("%w: invalid baseline file: expected { fingerprints: string[] }", fault.ErrInvalidJSON)
	}
	var fingerprints []string
	if err := json.Unmarshal(doc.Fingerprints, &fingerprints); err != nil {
		return nil, fmt.Errorf("%w: invalid baseline file: fingerprints must be an array of strings", fault.ErrInvalidJSON)
	}

	set := make(Set, len(fingerprints))
	for _, fp := range fingerprints {
		set[fp] = struct{}{}
	}
	return set, nil
}

// Apply drops findings whose fingerprint is in set. A nil set returns
// findings unchanged.
func Apply(findings []model.Finding, set Set) []model.Finding {
	if set == nil {
		return findings
	}
	return Diff(findings, set).New
}

// Delta describes how a scan relates to a baseline.
type Delta struct {
	New   []model.Finding
	Known int
	// Stale counts baseline fingerprints that no finding matched anymore.
	Stale int
}

func Diff(findings []model.Finding, set Set) Delta {
	d := Delta{New: make([]model.Finding, 0, len(findings))}
	matched := make(map[string]struct{})
	for _, f := range findings {
		fp := Fingerprint(f)
		if set.Has(fp) {
			d.Known++
			matched[fp] = struct{}{}
			continue
		}
		d.New = append(d.New, f)
	}
	d.Stale = len(set) - len(matched)
	return d
}
