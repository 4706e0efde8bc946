// Package wire reads the match referee's whitespace-separated observation
// stream and writes the one-line order responses.
//
// Setup is read once: cell count, link count and that many (a, b, distance)
// triples, then an entity count and that many FACTORY records. Every round
// then starts with an entity count followed by FACTORY, TROOP and BOMB
// records of seven tokens each.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/freeeve/cellwar/pkg/conquest"
)

var (
	// ErrProtocol marks input that does not follow the protocol. It is not
	// recoverable.
	ErrProtocol = errors.New("wire: protocol violation")

	// ErrMatchOver is returned when the input ends cleanly before a round.
	ErrMatchOver = errors.New("wire: match over")
)

// Entity type tokens.
const (
	EntityFactory = "FACTORY"
	EntityTroop   = "TROOP"
	EntityBomb    = "BOMB"
)

// maxEntities bounds counts read from the stream so a corrupt count cannot
// trigger a huge allocation.
const maxEntities = 1 << 16

// Reader decodes setup and round observations from a token stream.
type Reader struct {
	scanner *bufio.Scanner
	pos     int // tokens consumed, for error messages
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &Reader{scanner: s}
}

// ReadSetup reads the match description.
func (r *Reader) ReadSetup() (conquest.Setup, error) {
	var setup conquest.Setup
	var err error
	if setup.CellCount, err = r.count("cell count"); err != nil {
		return setup, r.atStart(err)
	}
	links, err := r.count("link count")
	if err != nil {
		return setup, err
	}
	setup.Links = make([]conquest.Link, 0, links)
	for range links {
		var l conquest.Link
		if l.A, err = r.integer("link cell"); err != nil {
			return setup, err
		}
		if l.B, err = r.integer("link cell"); err != nil {
			return setup, err
		}
		if l.Distance, err = r.integer("link distance"); err != nil {
			return setup, err
		}
		setup.Links = append(setup.Links, l)
	}

	entities, err := r.count("entity count")
	if err != nil {
		return setup, err
	}
	for range entities {
		id, kind, args, err := r.record()
		if err != nil {
			return setup, err
		}
		if kind != EntityFactory {
			return setup, r.protocolf("setup entity %d has type %q, want %s", id, kind, EntityFactory)
		}
		owner, err := r.owner(args[0])
		if err != nil {
			return setup, err
		}
		setup.Factories = append(setup.Factories, conquest.FactoryReport{
			ID:         id,
			Owner:      owner,
			Units:      args[1],
			Production: args[2],
		})
	}
	return setup, nil
}

// ReadRound reads one round of entity records. It returns ErrMatchOver when
// the stream ends before the round starts.
func (r *Reader) ReadRound() (conquest.RoundUpdate, error) {
	var u conquest.RoundUpdate
	entities, err := r.count("entity count")
	if err != nil {
		return u, r.atStart(err)
	}
	for range entities {
		id, kind, args, err := r.record()
		if err != nil {
			return u, err
		}
		owner, err := r.owner(args[0])
		if err != nil {
			return u, err
		}
		if kind != EntityFactory && owner == conquest.Neutral {
			return u, r.protocolf("%s %d has no owner", kind, id)
		}
		switch kind {
		case EntityFactory:
			u.Factories = append(u.Factories, conquest.FactoryReport{
				ID: id, Owner: owner, Units: args[1], Production: args[2], Disabled: args[3],
			})
		case EntityTroop:
			u.Troops = append(u.Troops, conquest.TroopReport{
				ID: id, Owner: owner, From: args[1], To: args[2], Units: args[3], Remaining: args[4],
			})
		case EntityBomb:
			u.Bombs = append(u.Bombs, conquest.BombReport{
				ID: id, Owner: owner, From: args[1], To: args[2], Remaining: args[3],
			})
		default:
			return u, r.protocolf("entity %d has unknown type %q", id, kind)
		}
	}
	return u, nil
}

// record reads "id TYPE a1 a2 a3 a4 a5".
func (r *Reader) record() (id int, kind string, args [5]int, err error) {
	if id, err = r.integer("entity id"); err != nil {
		return
	}
	if kind, err = r.token("entity type"); err != nil {
		return
	}
	for i := range args {
		if args[i], err = r.integer("entity argument"); err != nil {
			return
		}
	}
	return
}

func (r *Reader) owner(v int) (conquest.Owner, error) {
	if v < -1 || v > 1 {
		return 0, r.protocolf("owner %d out of range", v)
	}
	return conquest.Owner(v), nil
}

func (r *Reader) count(what string) (int, error) {
	n, err := r.integer(what)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > maxEntities {
		return 0, r.protocolf("%s %d out of range", what, n)
	}
	return n, nil
}

func (r *Reader) integer(what string) (int, error) {
	tok, err := r.token(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, r.protocolf("%s: %q is not an integer", what, tok)
	}
	return v, nil
}

func (r *Reader) token(what string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("wire: read %s: %w", what, err)
		}
		return "", fmt.Errorf("%w: %w reading %s at token %d", ErrProtocol, io.ErrUnexpectedEOF, what, r.pos)
	}
	r.pos++
	return r.scanner.Text(), nil
}

// atStart turns an end of input before the first token of a block into
// ErrMatchOver. A stream cut anywhere else stays a protocol violation.
func (r *Reader) atStart(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrMatchOver
	}
	return err
}

func (r *Reader) protocolf(format string, args ...any) error {
	return fmt.Errorf("%w: token %d: %s", ErrProtocol, r.pos, fmt.Sprintf(format, args...))
}
