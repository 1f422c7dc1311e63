// Package staticdata holds the read-only data served by the protocol
// handlers: the Gopher content tree, the QOTD quote list and the Active
// Users directory.
//
// Everything is embedded at build time and loaded exactly once at startup;
// malformed embedded data is a fatal startup error, never a request-time
// one. After Load returns, the store is immutable and safe for concurrent
// lock-free reads from every handler.
package staticdata

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed quotes.txt
var quotesRaw string

//go:embed users.txt
var usersRaw string

//go:embed all:site
var siteFS embed.FS

// Lookup errors. ErrNotFound means a well-formed path with no matching
// node; the other two reject the path itself.
var (
	ErrNotFound    = errors.New("no such entry")
	ErrNotAbsolute = errors.New("path is not absolute")
	ErrInvalidPath = errors.New("invalid path")
)

// pathCharset is the set of bytes allowed in lookup paths.
const pathCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ-./_"

// MaxQuoteBytes bounds the text of a single quote so that quote plus CRLF
// terminator fits the 512-byte QOTD limit.
const MaxQuoteBytes = 510

// Quote is one entry of the embedded quote list.
type Quote string

// UserRecord is one entry of the embedded user directory.
type UserRecord struct {
	Username string
	FullName string
	// ExtraInfo may span multiple lines and is not part of the Active
	// Users wire format.
	ExtraInfo string
}

// Rand is the random-source capability injected into quote selection so
// tests can seed it. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Node is one entry of the content tree: either a file with content or a
// directory with ordered children.
type Node struct {
	name     string
	content  []byte
	children []*Node
	byName   map[string]*Node
}

// Name returns the node's base name. The root node's name is empty.
func (n *Node) Name() string { return n.name }

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.byName != nil }

// Content returns the file content. Directories have none.
func (n *Node) Content() []byte { return n.content }

// Children returns the ordered child list of a directory.
func (n *Node) Children() []*Node { return n.children }

// Store is the immutable in-memory data store shared by all handlers.
type Store struct {
	root   *Node
	quotes []Quote
	users  []UserRecord
}

// Load builds the store from the embedded data. Any malformed record is
// returned as an error; callers treat that as fatal before binding any
// listener.
func Load() (*Store, error) {
	quotes, err := parseQuotes(quotesRaw)
	if err != nil {
		return nil, fmt.Errorf("embedded quote list: %w", err)
	}

	users, err := parseUsers(usersRaw)
	if err != nil {
		return nil, fmt.Errorf("embedded user directory: %w", err)
	}

	root, err := buildTree(siteFS, "site", "")
	if err != nil {
		return nil, fmt.Errorf("embedded content tree: %w", err)
	}

	return &Store{root: root, quotes: quotes, users: users}, nil
}

// Root returns the root directory of the content tree.
func (s *Store) Root() *Node { return s.root }

// Lookup resolves an absolute /-separated path against the content tree.
// "/" resolves to the root. Trailing slashes are tolerated.
func (s *Store) Lookup(path string) (*Node, error) {
	if path == "/" {
		return s.root, nil
	}

	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q", ErrNotAbsolute, path)
	}

	for i := 0; i < len(path); i++ {
		if !strings.ContainsRune(pathCharset, rune(path[i])) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}

	node := s.root
	trimmed := strings.TrimSuffix(path, "/")
	for _, name := range strings.Split(trimmed[1:], "/") {
		if !node.IsDir() {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		child, ok := node.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		node = child
	}

	return node, nil
}

// RandomQuote returns a uniformly selected quote.
func (s *Store) RandomQuote(r Rand) Quote {
	return s.quotes[r.IntN(len(s.quotes))]
}

// Quotes returns the full embedded quote list, in order.
func (s *Store) Quotes() []Quote { return s.quotes }

// Users returns the embedded user directory, in order.
func (s *Store) Users() []UserRecord { return s.users }

func parseQuotes(raw string) ([]Quote, error) {
	var quotes []Quote

	for i, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}
		if len(line) > MaxQuoteBytes {
			return nil, fmt.Errorf("quote %d is %d bytes, above the %d byte limit", i+1, len(line), MaxQuoteBytes)
		}
		for _, b := range []byte(line) {
			if b < 0x20 && b != '\t' || b == 0x7f {
				return nil, fmt.Errorf("quote %d contains control byte 0x%02x", i+1, b)
			}
		}
		quotes = append(quotes, Quote(line))
	}

	if len(quotes) == 0 {
		return nil, errors.New("quote list is empty")
	}
	return quotes, nil
}

func parseUsers(raw string) ([]UserRecord, error) {
	var users []UserRecord

	for i, line := range strings.Split(raw, "\n") {
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, ":", 3)
		if len(fields) < 2 {
			return nil, fmt.Errorf("user %d: want username:full name[:extra], got %q", i+1, line)
		}

		username := fields[0]
		if username == "" {
			return nil, fmt.Errorf("user %d: empty username", i+1)
		}
		for _, b := range []byte(username) {
			if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyz0123456789-_.", rune(b)) {
				return nil, fmt.Errorf("user %d: username %q contains invalid byte %q", i+1, username, b)
			}
		}

		fullName := fields[1]
		if strings.ContainsAny(fullName, "\r\n") {
			return nil, fmt.Errorf("user %d: full name contains a line break", i+1)
		}

		rec := UserRecord{Username: username, FullName: fullName}
		if len(fields) == 3 {
			// Extra info may span lines; the file encodes breaks as \n.
			rec.ExtraInfo = strings.ReplaceAll(fields[2], `\n`, "\n")
		}
		users = append(users, rec)
	}

	if len(users) == 0 {
		return nil, errors.New("user directory is empty")
	}
	return users, nil
}

// buildTree converts one directory of the embedded filesystem into a Node.
// embed.FS lists entries sorted by name, so child order is stable.
func buildTree(fsys embed.FS, dir, name string) (*Node, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	node := &Node{
		name:     name,
		children: make([]*Node, 0, len(entries)),
		byName:   make(map[string]*Node, len(entries)),
	}

	for _, entry := range entries {
		path := dir + "/" + entry.Name()

		var child *Node
		if entry.IsDir() {
			child, err = buildTree(fsys, path, entry.Name())
			if err != nil {
				return nil, err
			}
		} else {
			content, err := fsys.ReadFile(path)
			if err != nil {
				return nil, err
			}
			child = &Node{name: entry.Name(), content: content}
		}

		node.children = append(node.children, child)
		node.byName[child.name] = child
	}

	return node, nil
}
