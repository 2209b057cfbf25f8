package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	trackIDAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackIDGroups     = 3
	trackIDGroupSize  = 3
	defaultTrackTries = 5
)

// TrackIDGenerator produces XXX-XXX-XXX identifiers not yet used by any ticket.
type TrackIDGenerator struct {
	tickets     repository.TicketRepository
	maxAttempts int
	random      io.Reader
}

// NewTrackIDGenerator constructs the generator.
func NewTrackIDGenerator(tickets repository.TicketRepository, maxAttempts int) *TrackIDGenerator {
	if maxAttempts <= 0 {
		maxAttempts = defaultTrackTries
	}
	return &TrackIDGenerator{tickets: tickets, maxAttempts: maxAttempts, random: rand.Reader}
}

// Generate draws candidates until one is unused or the attempts run out.
func (g *TrackIDGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate, err := g.candidate()
		if err != nil {
			return "", apperrors.NewInternalError(err)
		}
		exists, err := g.tickets.TrackIDExists(ctx, candidate)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", apperrors.NewInternalError(fmt.Errorf("no unused track id after %d attempts", g.maxAttempts))
}

func (g *TrackIDGenerator) candidate() (string, error) {
	buf := make([]byte, trackIDGroups*trackIDGroupSize)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	var sb strings.Builder
	for i, b := range buf {
		if i > 0 && i%trackIDGroupSize == 0 {
			sb.WriteByte('-')
		}
		// 256 % 36 leaves a slight bias toward the first letters; ids are not secrets.
		sb.WriteByte(trackIDAlphabet[int(b)%len(trackIDAlphabet)])
	}
	return sb.String(), nil
}
