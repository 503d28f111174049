package skk

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bnema/wayskk/internal/logger"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	okuriAriHeader   = ";; okuri-ari entries."
	okuriNashiHeader = ";; okuri-nashi entries."
)

// Candidate is one conversion result for a reading.
type Candidate struct {
	Text       string
	Annotation string
}

// Dictionary maps readings to candidates. Okuri-ari readings end with the
// romaji consonant of the okurigana, e.g. "かk".
type Dictionary interface {
	Lookup(reading string, okuri bool) []Candidate
	Len() int
}

// Learner is a dictionary that records committed candidates.
type Learner interface {
	Dictionary
	Learn(reading string, okuri bool, c Candidate)
	Save() error
}

// EmptyDictionary is the always present primary dictionary.
type EmptyDictionary struct{}

func (EmptyDictionary) Lookup(string, bool) []Candidate { return nil }
func (EmptyDictionary) Len() int                        { return 0 }

type entries struct {
	ari   map[string][]Candidate
	nashi map[string][]Candidate
}

func newEntries() entries {
	return entries{ari: make(map[string][]Candidate), nashi: make(map[string][]Candidate)}
}

func (e *entries) table(okuri bool) map[string][]Candidate {
	if okuri {
		return e.ari
	}
	return e.nashi
}

func (e *entries) Lookup(reading string, okuri bool) []Candidate {
	return e.table(okuri)[reading]
}

func (e *entries) Len() int {
	return len(e.ari) + len(e.nashi)
}

// parse reads SKK-JISYO text. Entries before any section header are
// treated as okuri-nashi.
func (e *entries) parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	okuri := false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ";") {
			switch {
			case strings.HasPrefix(line, okuriAriHeader):
				okuri = true
			case strings.HasPrefix(line, okuriNashiHeader):
				okuri = false
			}
			continue
		}
		reading, rest, ok := strings.Cut(line, " ")
		if !ok || !strings.HasPrefix(rest, "/") {
			continue
		}
		cands := parseCandidates(rest)
		if len(cands) == 0 {
			continue
		}
		t := e.table(okuri)
		t[reading] = append(t[reading], cands...)
	}
	return sc.Err()
}

func parseCandidates(field string) []Candidate {
	var out []Candidate
	for _, item := range strings.Split(strings.Trim(field, "/"), "/") {
		// Okurigana blocks and Lisp expressions are not evaluated.
		if item == "" || strings.HasPrefix(item, "[") || strings.HasPrefix(item, "(") {
			continue
		}
		text, annotation, _ := strings.Cut(item, ";")
		out = append(out, Candidate{Text: text, Annotation: annotation})
	}
	return out
}

func formatEntry(w io.Writer, reading string, cands []Candidate) error {
	var b strings.Builder
	b.WriteString(reading)
	b.WriteString(" /")
	for _, c := range cands {
		b.WriteString(c.Text)
		if c.Annotation != "" {
			b.WriteByte(';')
			b.WriteString(c.Annotation)
		}
		b.WriteByte('/')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported dictionary encoding %q: %w", name, err)
	}
	return enc, nil
}

func readEntries(path string, enc encoding.Encoding) (entries, error) {
	e := newEntries()
	f, err := os.Open(path)
	if err != nil {
		return e, err
	}
	defer f.Close()
	if err := e.parse(enc.NewDecoder().Reader(f)); err != nil {
		return e, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return e, nil
}

// StaticDictionary is a read-only SKK-JISYO file held in memory.
type StaticDictionary struct {
	entries
	Path     string
	Encoding string
}

func LoadStaticDictionary(path, encodingName string) (*StaticDictionary, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	e, err := readEntries(path, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to load static dictionary: %w", err)
	}
	return &StaticDictionary{entries: e, Path: path, Encoding: encodingName}, nil
}

// UserDictionary learns committed candidates and writes itself back in its
// own encoding.
type UserDictionary struct {
	entries
	Path     string
	Encoding string
	enc      encoding.Encoding
	dirty    bool
}

// LoadUserDictionary reads path. A missing file yields an empty dictionary
// that is created on the first Save.
func LoadUserDictionary(path, encodingName string) (*UserDictionary, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	e, err := readEntries(path, enc)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load user dictionary: %w", err)
	}
	return &UserDictionary{entries: e, Path: path, Encoding: encodingName, enc: enc}, nil
}

// Learn moves c to the front of the reading's candidates.
func (d *UserDictionary) Learn(reading string, okuri bool, c Candidate) {
	t := d.table(okuri)
	cands := []Candidate{c}
	for _, old := range t[reading] {
		if old.Text != c.Text {
			cands = append(cands, old)
		}
	}
	t[reading] = cands
	d.dirty = true
}

// Save rewrites the file if anything was learned since the last save.
func (d *UserDictionary) Save() error {
	if !d.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(d.Path), 0750); err != nil {
		return fmt.Errorf("failed to create dictionary directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.Path), filepath.Base(d.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to save user dictionary: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := d.enc.NewEncoder().Writer(tmp)
	if err := d.write(w); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save user dictionary %s: %w", d.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("failed to save user dictionary: %w", err)
	}
	d.dirty = false
	logger.Debug("User dictionary saved", "path", d.Path, "entries", d.Len())
	return nil
}

func (d *UserDictionary) write(w io.Writer) error {
	for _, okuri := range []bool{true, false} {
		header := okuriNashiHeader
		if okuri {
			header = okuriAriHeader
		}
		if _, err := io.WriteString(w, header+"\n"); err != nil {
			return err
		}
		t := d.table(okuri)
		readings := make([]string, 0, len(t))
		for r := range t {
			readings = append(readings, r)
		}
		sort.Strings(readings)
		for _, r := range readings {
			if err := formatEntry(w, r, t[r]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Kind tells static dictionaries from user ones.
type Kind string

const (
	KindStatic Kind = "static"
	KindUser   Kind = "user"
)

// Source names a dictionary file to load.
type Source struct {
	Kind     Kind
	Path     string
	Encoding string
}

// Load opens one dictionary.
func Load(src Source) (Dictionary, error) {
	switch src.Kind {
	case KindUser:
		return LoadUserDictionary(src.Path, src.Encoding)
	case KindStatic:
		return LoadStaticDictionary(src.Path, src.Encoding)
	default:
		return nil, fmt.Errorf("unknown dictionary kind %q", src.Kind)
	}
}

// LoadAll builds the engine's dictionary list: the empty primary dictionary
// followed by every source that loads. Failures are logged and skipped.
func LoadAll(sources []Source) []Dictionary {
	dicts := []Dictionary{EmptyDictionary{}}
	for _, src := range sources {
		d, err := Load(src)
		if err != nil {
			logger.Error("Loading dictionary failed, skipping", "kind", src.Kind, "path", src.Path, "error", err)
			continue
		}
		logger.Info("Dictionary loaded", "kind", src.Kind, "path", src.Path, "entries", d.Len())
		dicts = append(dicts, d)
	}
	return dicts
}
