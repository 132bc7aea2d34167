package conversion

import (
	"container/heap"
	"fmt"

	"datablocks/internal/domain"
)

// ConversionEdge is one converter application between two vertices.
type ConversionEdge struct {
	Source    domain.StorageFormat `json:"source"`
	Target    domain.StorageFormat `json:"target"`
	Converter Converter            `json:"-"`
	Cost      CostLevel            `json:"cost"`
}

// ConversionPath is an ordered chain of edges. An empty path means the
// source already is the target.
type ConversionPath struct {
	Edges []ConversionEdge `json:"edges"`
}

// TotalCost sums the ordinal cost of every edge.
func (p *ConversionPath) TotalCost() int {
	total := 0
	for _, e := range p.Edges {
		total += int(e.Cost)
	}
	return total
}

// Len returns the number of edges.
func (p *ConversionPath) Len() int { return len(p.Edges) }

// Lookup indexes converters by the vertices they connect. It is built once
// and never modified, so concurrent reads need no locking.
type Lookup struct {
	converters []Converter
	edges      map[domain.StorageFormat][]ConversionEdge // source → outgoing, in registration order
}

func NewLookup(converters ...Converter) *Lookup {
	l := &Lookup{
		converters: append([]Converter(nil), converters...),
		edges:      make(map[domain.StorageFormat][]ConversionEdge),
	}
	for _, c := range converters {
		for _, in := range c.SupportedInputs() {
			for _, out := range c.SupportedOutputs() {
				if in == out {
					continue
				}
				l.edges[in] = append(l.edges[in], ConversionEdge{
					Source:    in,
					Target:    out,
					Converter: c,
					Cost:      c.Cost(),
				})
			}
		}
	}
	return l
}

// Converters returns the registered converters in registration order.
func (l *Lookup) Converters() []Converter {
	return append([]Converter(nil), l.converters...)
}

func supports(list []domain.StorageFormat, sf domain.StorageFormat) bool {
	for _, x := range list {
		if x == sf {
			return true
		}
	}
	return false
}

// GetLowestCost returns the cheapest single converter from src to tgt.
// Equal costs resolve to the earliest registered.
func (l *Lookup) GetLowestCost(src, tgt domain.StorageFormat) (Converter, error) {
	var best Converter
	for _, c := range l.converters {
		if !supports(c.SupportedInputs(), src) || !supports(c.SupportedOutputs(), tgt) {
			continue
		}
		if best == nil || c.Cost() < best.Cost() {
			best = c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s → %s: %w", src, tgt, ErrNoConverterRegistered)
	}
	return best, nil
}

// GetLowestCostPath finds the cheapest chain of converters from src to tgt
// using only edges whose endpoints live on an available storage type.
func (l *Lookup) GetLowestCostPath(src, tgt domain.StorageFormat, available []domain.StorageType) (*ConversionPath, error) {
	if src == tgt {
		return &ConversionPath{}, nil
	}

	allowed := make(map[domain.StorageType]bool, len(available))
	for _, st := range available {
		allowed[st] = true
	}

	dist := map[domain.StorageFormat]int{src: 0}
	via := map[domain.StorageFormat]ConversionEdge{}
	done := map[domain.StorageFormat]bool{}

	seq := 0
	pq := &vertexQueue{}
	heap.Push(pq, &vertexItem{vertex: src, cost: 0, seq: seq})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*vertexItem)
		if done[cur.vertex] {
			continue
		}
		done[cur.vertex] = true
		if cur.vertex == tgt {
			break
		}

		for _, e := range l.edges[cur.vertex] {
			if !allowed[e.Source.StorageType] || !allowed[e.Target.StorageType] {
				continue
			}
			if done[e.Target] {
				continue
			}
			next := cur.cost + int(e.Cost)
			if d, seen := dist[e.Target]; seen && next >= d {
				continue
			}
			dist[e.Target] = next
			via[e.Target] = e
			seq++
			heap.Push(pq, &vertexItem{vertex: e.Target, cost: next, seq: seq})
		}
	}

	if !done[tgt] {
		return nil, fmt.Errorf("%s → %s: %w", src, tgt, ErrNoConversionPath)
	}

	var edges []ConversionEdge
	for v := tgt; v != src; {
		e := via[v]
		edges = append(edges, e)
		v = e.Source
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return &ConversionPath{Edges: edges}, nil
}

// ── priority queue ─────────────────────────────────────────

type vertexItem struct {
	vertex domain.StorageFormat
	cost   int
	seq    int
}

// vertexQueue orders by cost, then by discovery order.
type vertexQueue []*vertexItem

func (q vertexQueue) Len() int { return len(q) }
func (q vertexQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}
func (q vertexQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *vertexQueue) Push(x any)   { *q = append(*q, x.(*vertexItem)) }
func (q *vertexQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
