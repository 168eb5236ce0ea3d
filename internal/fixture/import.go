package fixture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/batonset/internal/contest"
	"github.com/roach88/batonset/internal/scoring"
)

// Importer is the subset of the store an import writes through.
// *store.Store implements it.
type Importer interface {
	InsertCoach(ctx context.Context, c contest.Coach) (int64, error)
	InsertParticipant(ctx context.Context, p contest.Participant) (int64, error)
	InsertContest(ctx context.Context, c contest.Contest) (int64, error)
	InsertJudge(ctx context.Context, j contest.Judge) (int64, error)
	AssignLaneJudge(ctx context.Context, lj contest.LaneJudge) error
	InsertEvent(ctx context.Context, e contest.Event) (int64, error)
	SetParticipantStatus(ctx context.Context, st contest.ParticipantStatus) (int64, error)
	Register(ctx context.Context, r contest.Registration) (int64, error)
	UpsertScore(ctx context.Context, s contest.Score, w scoring.Weights) (int64, error)
}

// IDs maps fixture keys to the ids the store assigned.
type IDs struct {
	ContestID    int64
	Coaches      map[string]int64
	Participants map[string]int64
	Judges       map[string]int64
	Events       map[string]int64
}

// Event returns the id of an event key, 0 when unknown.
func (ids *IDs) Event(key string) int64 { return ids.Events[key] }

// Participant returns the id of a participant key, 0 when unknown.
func (ids *IDs) Participant(key string) int64 { return ids.Participants[key] }

// Judge returns the id of a judge key, 0 when unknown.
func (ids *IDs) Judge(key string) int64 { return ids.Judges[key] }

// Import writes every entity of f in dependency order and returns the
// assigned ids. Scores are materialized with w.
//
// Import is not atomic: a failure part way leaves the entities written so
// far. Import into a fresh database.
func Import(ctx context.Context, st Importer, f *File, w scoring.Weights) (*IDs, error) {
	ids := &IDs{
		Coaches:      make(map[string]int64, len(f.Coaches)),
		Participants: make(map[string]int64, len(f.Participants)),
		Judges:       make(map[string]int64, len(f.Judges)),
		Events:       make(map[string]int64, len(f.Events)),
	}

	for _, c := range f.Coaches {
		id, err := st.InsertCoach(ctx, contest.Coach{
			FirstName: clean(c.FirstName),
			LastName:  clean(c.LastName),
			Email:     c.Email,
			Phone:     c.Phone,
			Studio:    clean(c.Studio),
			IsJudge:   c.IsJudge,
		})
		if err != nil {
			return nil, fmt.Errorf("coach %s: %w", c.Key, err)
		}
		ids.Coaches[c.Key] = id
	}

	for _, p := range f.Participants {
		birth, err := date(p.Birthdate)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.Key, err)
		}
		id, err := st.InsertParticipant(ctx, contest.Participant{
			FirstName:   clean(p.FirstName),
			LastName:    clean(p.LastName),
			Birthdate:   birth,
			Gender:      p.Gender,
			Citizenship: p.Citizenship,
			CoachID:     ids.Coaches[p.Coach],
			Studio:      clean(p.Studio),
			Notes:       p.Notes,
		})
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.Key, err)
		}
		ids.Participants[p.Key] = id
	}

	day, err := date(f.Contest.Date)
	if err != nil {
		return nil, fmt.Errorf("contest: %w", err)
	}
	ids.ContestID, err = st.InsertContest(ctx, contest.Contest{
		Name:           clean(f.Contest.Name),
		Date:           day,
		Location:       f.Contest.Location,
		Classification: contest.Classification(f.Contest.Classification),
		NumLanes:       f.Contest.Lanes,
		Notes:          f.Contest.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("contest: %w", err)
	}

	for _, j := range f.Judges {
		id, err := st.InsertJudge(ctx, contest.Judge{
			ContestID: ids.ContestID,
			CoachID:   ids.Coaches[j.Coach],
			FirstName: clean(j.FirstName),
			LastName:  clean(j.LastName),
			Email:     j.Email,
		})
		if err != nil {
			return nil, fmt.Errorf("judge %s: %w", j.Key, err)
		}
		ids.Judges[j.Key] = id
	}
	for _, l := range f.Lanes {
		err := st.AssignLaneJudge(ctx, contest.LaneJudge{ContestID: ids.ContestID, Lane: l.Lane, JudgeID: ids.Judges[l.Judge]})
		if err != nil {
			return nil, fmt.Errorf("lane %d: %w", l.Lane, err)
		}
	}

	for _, e := range f.Events {
		id, err := st.InsertEvent(ctx, contest.Event{
			ContestID: ids.ContestID,
			Type:      contest.EventType(e.Type),
			Status:    contest.StatusLevel(e.Status),
			Age:       contest.AgeDivision(e.Age),
			AgeMin:    e.AgeMin,
			AgeMax:    e.AgeMax,
			TimeMin:   time.Duration(e.TimeMin) * time.Second,
			TimeMax:   time.Duration(e.TimeMax) * time.Second,
			AreaSize:  e.AreaSize,
		})
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.Key, err)
		}
		ids.Events[e.Key] = id
	}

	for _, s := range f.Statuses {
		_, err := st.SetParticipantStatus(ctx, contest.ParticipantStatus{
			ParticipantID: ids.Participants[s.Participant],
			EventType:     contest.EventType(s.Type),
			Status:        contest.StatusLevel(s.Status),
			Wins:          s.Wins,
		})
		if err != nil {
			return nil, fmt.Errorf("status %s/%s: %w", s.Participant, s.Type, err)
		}
	}

	for _, r := range f.Registrations {
		at := day
		if r.Date != "" {
			if at, err = date(r.Date); err != nil {
				return nil, fmt.Errorf("registration %s/%s: %w", r.Participant, r.Event, err)
			}
		}
		_, err := st.Register(ctx, contest.Registration{
			EventID:       ids.Events[r.Event],
			ParticipantID: ids.Participants[r.Participant],
			RegisteredAt:  at,
		})
		if err != nil {
			return nil, fmt.Errorf("registration %s/%s: %w", r.Participant, r.Event, err)
		}
	}

	for _, s := range f.Scores {
		sc, err := s.Resolve(ids)
		if err != nil {
			return nil, err
		}
		if _, err := st.UpsertScore(ctx, sc, w); err != nil {
			return nil, fmt.Errorf("score %s/%s/%s: %w", s.Event, s.Participant, s.Judge, err)
		}
	}
	return ids, nil
}

// Resolve turns a fixture score into a contest.Score using ids from an
// earlier Import.
func (s Score) Resolve(ids *IDs) (contest.Score, error) {
	raw, err := contest.ParsePoints(s.Raw)
	if err != nil {
		return contest.Score{}, fmt.Errorf("score %s/%s/%s: %w", s.Event, s.Participant, s.Judge, err)
	}
	p := s.Penalties
	return contest.Score{
		EventID:       ids.Event(s.Event),
		ParticipantID: ids.Participant(s.Participant),
		JudgeID:       ids.Judge(s.Judge),
		Raw:           raw,
		Penalties: contest.PenaltyCounts{
			Drops:          p.Drops,
			TwoHand:        p.TwoHand,
			Falls:          p.Falls,
			Breaks:         p.Breaks,
			TimeSeconds:    p.TimeSeconds,
			NoSalute:       p.NoSalute,
			ImproperSalute: p.ImproperSalute,
		},
		Flagged: s.Flagged,
		Notes:   s.Notes,
	}, nil
}

// clean trims surrounding space and composes to NFC.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func date(s string) (time.Time, error) {
	t, err := time.Parse(contest.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
