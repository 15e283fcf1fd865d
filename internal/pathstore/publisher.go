package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dgallion1/docgraph/internal/graph"
)

// Publisher writes document graphs into pathstore. Each node lands under
// graphs/{doc}/nodes/{path}, with the dotted path turned into key segments,
// and every parent is linked to its children. A summary with a digest of the
// graph is kept at graphs/{doc}/meta.
type Publisher struct {
	client *Client
}

func NewPublisher(c *Client) *Publisher {
	return &Publisher{client: c}
}

// DocumentKey is the prefix holding everything published for docID.
func DocumentKey(docID string) string {
	return "graphs/" + docID
}

// NodeKey is the key for the node at a graph path.
func NodeKey(docID, path string) string {
	k := DocumentKey(docID) + "/nodes"
	if path == "" {
		return k
	}
	return k + "/" + strings.ReplaceAll(path, ".", "/")
}

type nodeValue struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Level    int        `json:"level"`
	Text     string     `json:"text,omitempty"`
	Path     string     `json:"path"`
	Pages    [2]int     `json:"pages"`
	Box      [4]float64 `json:"bounding_box"`
	Children int        `json:"children"`
}

type metaValue struct {
	SchemaVersion string `json:"schema_version"`
	Title         string `json:"title"`
	PageCount     int    `json:"page_count"`
	RootID        string `json:"root_id"`
	Nodes         int    `json:"nodes"`
	Digest        string `json:"digest"`
}

// Digest hashes everything Publish writes for d.
func Digest(d *graph.Document) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%s|%d\x00", d.SchemaVersion, d.Info.Title, d.Info.PageCount)
	d.Root.Walk(func(n *graph.Node, _ int) bool {
		fmt.Fprintf(h, "%s|%s|%d|%s|%d|%d|%g|%g|%g|%g|%s\x00",
			n.ID, n.Type, n.Level, n.Path, n.Pages.Start, n.Pages.End,
			n.Box.Left, n.Box.Top, n.Box.Right, n.Box.Bottom, n.Text)
		return true
	})
	return fmt.Sprintf("%016x", h.Sum64())
}

// Publish replaces whatever was stored for docID with d and returns the
// number of nodes stored. When the stored digest already matches d nothing
// is rewritten.
func (p *Publisher) Publish(ctx context.Context, docID string, d *graph.Document) (int, error) {
	metaKey := DocumentKey(docID) + "/meta"
	digest := Digest(d)
	existing, err := p.client.GetNode(ctx, metaKey)
	if err != nil {
		return 0, fmt.Errorf("read meta: %w", err)
	}
	if existing != nil {
		var m metaValue
		if json.Unmarshal(existing.Value, &m) == nil && m.Digest == digest {
			return m.Nodes, nil
		}
	}

	if err := p.client.DeleteNode(ctx, DocumentKey(docID), true); err != nil {
		return 0, fmt.Errorf("clear %s: %w", docID, err)
	}

	source := "docgraph:" + docID
	written := 0
	d.Root.Walk(func(n *graph.Node, _ int) bool {
		if err != nil {
			return false
		}
		key := NodeKey(docID, n.Path)
		err = p.client.PutNode(ctx, key, NodeRequest{
			Value: nodeValue{
				ID:       n.ID,
				Type:     string(n.Type),
				Level:    n.Level,
				Text:     n.Text,
				Path:     n.Path,
				Pages:    [2]int{n.Pages.Start, n.Pages.End},
				Box:      [4]float64{n.Box.Left, n.Box.Top, n.Box.Right, n.Box.Bottom},
				Children: len(n.Children),
			},
			MemoryType: "document_graph",
			Source:     source,
		})
		if err != nil {
			return false
		}
		written++
		for _, c := range n.Children {
			err = p.client.PutLink(ctx, LinkRequest{
				From:    key,
				To:      NodeKey(docID, c.Path),
				Weight:  1,
				Summary: "contains",
			})
			if err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return written, err
	}

	err = p.client.PutNode(ctx, metaKey, NodeRequest{
		Value: metaValue{
			SchemaVersion: d.SchemaVersion,
			Title:         d.Info.Title,
			PageCount:     d.Info.PageCount,
			RootID:        d.Root.ID,
			Nodes:         written,
			Digest:        digest,
		},
		MemoryType: "metacognitive",
		Salience:   0.5,
		Source:     source,
	})
	if err != nil {
		return written, fmt.Errorf("meta: %w", err)
	}
	return written, nil
}
