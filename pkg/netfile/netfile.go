// Package netfile reads and writes the flat text description of a road
// network.
//
// The first record is "V,E,width,height". It is followed by V intersection
// records "x,y,n" and E road records "from,to[,capacity]" where from and to
// are 0-based intersection indices. Blank lines and lines starting with '#'
// (after optional indentation) are ignored.
package netfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ardalan-sia/queue-traffic/pkg/graph"
)

// DefaultCapacity is used for road records without a capacity field.
const DefaultCapacity = 30

// Dims is the screen size stored alongside the network. It only matters to
// renderers.
type Dims struct {
	Width  int
	Height int
}

// ErrFormat wraps every parse failure.
var ErrFormat = errors.New("malformed network file")

// Read parses a network. capacity is applied to roads that do not carry
// their own; values below 1 select DefaultCapacity.
func Read(r io.Reader, capacity int, opts ...graph.Option) (*graph.Network, Dims, error) {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	body, err := stripComments(r)
	if err != nil {
		return nil, Dims{}, err
	}
	cr := csv.NewReader(strings.NewReader(body))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, Dims{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(records) == 0 {
		return nil, Dims{}, fmt.Errorf("%w: missing header", ErrFormat)
	}

	header, err := ints(records[0], 4)
	if err != nil {
		return nil, Dims{}, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	numV, numE := header[0], header[1]
	dims := Dims{Width: header[2], Height: header[3]}
	if numV < 0 || numE < 0 {
		return nil, dims, fmt.Errorf("%w: negative counts %d,%d", ErrFormat, numV, numE)
	}
	if got := len(records) - 1; got != numV+numE {
		return nil, dims, fmt.Errorf("%w: header declares %d records, found %d", ErrFormat, numV+numE, got)
	}

	net := graph.New(opts...)
	ids := make([]graph.VertexID, 0, numV)
	for i, rec := range records[1 : 1+numV] {
		vals, err := floats(rec, 3)
		if err != nil {
			return nil, dims, fmt.Errorf("%w: intersection %d: %v", ErrFormat, i, err)
		}
		in, err := net.AddIntersection(r2.Vec{X: vals[0], Y: vals[1]}, vals[2])
		if err != nil {
			return nil, dims, fmt.Errorf("intersection %d: %w", i, err)
		}
		ids = append(ids, in.ID)
	}

	for i, rec := range records[1+numV:] {
		if len(rec) != 2 && len(rec) != 3 {
			return nil, dims, fmt.Errorf("%w: road %d: want 2 or 3 fields, got %d", ErrFormat, i, len(rec))
		}
		vals, err := ints(rec, len(rec))
		if err != nil {
			return nil, dims, fmt.Errorf("%w: road %d: %v", ErrFormat, i, err)
		}
		from, to := vals[0], vals[1]
		if from < 0 || from >= numV || to < 0 || to >= numV {
			return nil, dims, fmt.Errorf("%w: road %d: endpoint %d→%d out of range", ErrFormat, i, from, to)
		}
		c := capacity
		if len(vals) == 3 {
			c = vals[2]
		}
		if _, err := net.AddRoad(ids[from], ids[to], c); err != nil {
			return nil, dims, fmt.Errorf("road %d: %w", i, err)
		}
	}
	return net, dims, nil
}

// Write stores net in the format Read accepts. Road capacities equal to
// DefaultCapacity are omitted.
func Write(w io.Writer, net *graph.Network, dims Dims) error {
	cw := csv.NewWriter(w)
	write := func(fields ...string) {
		// errors are sticky and reported by cw.Error
		_ = cw.Write(fields)
	}
	write(itoa(net.IntersectionCount()), itoa(net.RoadCount()), itoa(dims.Width), itoa(dims.Height))
	for _, in := range net.Intersections() {
		write(ftoa(in.Pos.X), ftoa(in.Pos.Y), ftoa(in.N))
	}
	for _, r := range net.Roads() {
		from, to, err := net.Endpoints(r)
		if err != nil {
			return err
		}
		if r.Capacity() == DefaultCapacity {
			write(itoa(from), itoa(to))
		} else {
			write(itoa(from), itoa(to), itoa(r.Capacity()))
		}
	}
	cw.Flush()
	return cw.Error()
}

// stripComments drops blank lines and lines whose first non-space character
// is '#'.
func stripComments(r io.Reader) (string, error) {
	var b strings.Builder
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("read network: %w", err)
	}
	return b.String(), nil
}

func ints(rec []string, n int) ([]int, error) {
	if len(rec) != n {
		return nil, fmt.Errorf("want %d fields, got %d", n, len(rec))
	}
	out := make([]int, n)
	for i, f := range rec {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func floats(rec []string, n int) ([]float64, error) {
	if len(rec) != n {
		return nil, fmt.Errorf("want %d fields, got %d", n, len(rec))
	}
	out := make([]float64, n)
	for i, f := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func itoa(i int) string     { return strconv.Itoa(i) }
func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
