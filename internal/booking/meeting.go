package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MeetingLinkProvider is the external video-call collaborator. The link is an
// opaque string; generating it never happens inside a booking critical section.
type MeetingLinkProvider interface {
	NewMeetingLink(ctx context.Context, appointmentID uuid.UUID) (string, error)
}

// OpaqueLinkProvider issues locally generated, non-guessable room links. It is
// the default when no real video backend is wired in.
type OpaqueLinkProvider struct {
	BaseURL string
}

func (p *OpaqueLinkProvider) NewMeetingLink(_ context.Context, appointmentID uuid.UUID) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://meet.pawlink.io"
	}
	return fmt.Sprintf("%s/rooms/%s-%s", base, appointmentID.String(), uuid.NewString()[:8]), nil
}
