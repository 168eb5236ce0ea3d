package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/batonset/internal/contest"
)

// querier is satisfied by *sql.DB and *sql.Tx so reads can run inside a
// snapshot transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// collect scans every row. Returns an empty slice (not nil) when there are
// no rows.
func collect[T any](rows *sql.Rows, what string, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return out, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatDate(t time.Time) string {
	return t.Format(contest.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(contest.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func insertID(ctx context.Context, q querier, what, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", what, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", what, err)
	}
	return id, nil
}

// InsertCoach stores a coach and returns its id.
func (s *Store) InsertCoach(ctx context.Context, c contest.Coach) (int64, error) {
	return insertID(ctx, s.db, "coach", `
		INSERT INTO coaches (first_name, last_name, email, phone, studio, is_judge)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.FirstName, c.LastName, c.Email, c.Phone, c.Studio, boolInt(c.IsJudge))
}

// InsertParticipant stores a participant and returns its id. An empty
// citizenship defaults to USA.
func (s *Store) InsertParticipant(ctx context.Context, p contest.Participant) (int64, error) {
	if p.Birthdate.IsZero() {
		return 0, contest.NewValidationError("birthdate", "participant birthdate is required")
	}
	citizenship := p.Citizenship
	if citizenship == "" {
		citizenship = "USA"
	}
	return insertID(ctx, s.db, "participant", `
		INSERT INTO participants (first_name, last_name, birthdate, gender, citizenship, coach_id, studio, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.FirstName, p.LastName, formatDate(p.Birthdate), p.Gender, citizenship, nullID(p.CoachID), p.Studio, p.Notes)
}

// InsertContest stores a contest and returns its id. A zero lane count
// defaults to 4.
func (s *Store) InsertContest(ctx context.Context, c contest.Contest) (int64, error) {
	if !c.Classification.Valid() {
		return 0, contest.NewValidationError("classification", fmt.Sprintf("unknown classification %q", c.Classification))
	}
	lanes := c.NumLanes
	if lanes == 0 {
		lanes = 4
	}
	if lanes < 0 {
		return 0, contest.NewValidationError("num_lanes", fmt.Sprintf("lane count must be positive, got %d", lanes))
	}
	return insertID(ctx, s.db, "contest", `
		INSERT INTO contests (name, date, location, classification, num_lanes, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Name, formatDate(c.Date), c.Location, string(c.Classification), lanes, c.Notes)
}

// InsertJudge stores a judge for a contest and returns its id.
func (s *Store) InsertJudge(ctx context.Context, j contest.Judge) (int64, error) {
	return insertID(ctx, s.db, "judge", `
		INSERT INTO judges (contest_id, coach_id, first_name, last_name, email)
		VALUES (?, ?, ?, ?, ?)
	`, j.ContestID, nullID(j.CoachID), j.FirstName, j.LastName, j.Email)
}

// AssignLaneJudge puts a judge on a lane, replacing any previous judge of
// that lane.
func (s *Store) AssignLaneJudge(ctx context.Context, lj contest.LaneJudge) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var judgeContest int64
		err := tx.QueryRowContext(ctx, `SELECT contest_id FROM judges WHERE id = ?`, lj.JudgeID).Scan(&judgeContest)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("judge %d: %w", lj.JudgeID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("assign lane judge: %w", err)
		}
		if judgeContest != lj.ContestID {
			return contest.NewValidationError("judge_id",
				fmt.Sprintf("judge %d belongs to contest %d, not %d", lj.JudgeID, judgeContest, lj.ContestID))
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO lane_judges (contest_id, lane, judge_id)
			VALUES (?, ?, ?)
			ON CONFLICT(contest_id, lane) DO UPDATE SET judge_id = excluded.judge_id
		`, lj.ContestID, lj.Lane, lj.JudgeID)
		if err != nil {
			return fmt.Errorf("assign lane judge: %w", err)
		}
		return nil
	})
}

// InsertEvent stores an event and returns its id. Enum values are checked
// before anything is written.
func (s *Store) InsertEvent(ctx context.Context, e contest.Event) (int64, error) {
	switch {
	case !e.Type.Valid():
		return 0, contest.NewValidationError("event_type", fmt.Sprintf("unknown event type %q", e.Type))
	case !e.Status.Valid():
		return 0, contest.NewValidationError("status_level", fmt.Sprintf("unknown status level %q", e.Status))
	case !e.Age.Valid():
		return 0, contest.NewValidationError("age_division", fmt.Sprintf("unknown age division %q", e.Age))
	}
	return insertID(ctx, s.db, "event", `
		INSERT INTO events (contest_id, event_type, status_level, age_division, age_min, age_max,
		                    time_min_seconds, time_max_seconds, performance_area_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ContestID, string(e.Type), string(e.Status), string(e.Age), e.AgeMin, e.AgeMax,
		int64(e.TimeMin/time.Second), int64(e.TimeMax/time.Second), e.AreaSize)
}

// SetParticipantStatus records a participant's level and wins for an event
// type, replacing any earlier record for the same type.
func (s *Store) SetParticipantStatus(ctx context.Context, st contest.ParticipantStatus) (int64, error) {
	if !st.EventType.Valid() || !st.Status.Valid() {
		return 0, contest.NewValidationError("status",
			fmt.Sprintf("unknown event type %q or status level %q", st.EventType, st.Status))
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO participant_status (participant_id, event_type, status_level, wins)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(participant_id, event_type) DO UPDATE
		SET status_level = excluded.status_level, wins = excluded.wins
		RETURNING id
	`, st.ParticipantID, string(st.EventType), string(st.Status), st.Wins).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("set participant status: %w", err)
	}
	return id, nil
}

// Register enters a participant into an event and returns the
// registration id. A zero RegisteredAt is stored as today.
func (s *Store) Register(ctx context.Context, r contest.Registration) (int64, error) {
	at := r.RegisteredAt
	if at.IsZero() {
		at = time.Now()
	}
	return insertID(ctx, s.db, "registration", `
		INSERT INTO registrations (event_id, participant_id, registration_date)
		VALUES (?, ?, ?)
	`, r.EventID, r.ParticipantID, formatDate(at))
}

const contestColumns = `id, name, date, location, classification, num_lanes, notes, data_revision`

func scanContest(sc scanner) (contest.Contest, error) {
	var c contest.Contest
	var date, class string
	if err := sc.Scan(&c.ID, &c.Name, &date, &c.Location, &class, &c.NumLanes, &c.Notes, &c.Revision); err != nil {
		return contest.Contest{}, err
	}
	d, err := parseDate(date)
	if err != nil {
		return contest.Contest{}, err
	}
	c.Date, c.Classification = d, contest.Classification(class)
	return c, nil
}

// GetContest reads one contest, including its current data revision.
func (s *Store) GetContest(ctx context.Context, id int64) (contest.Contest, error) {
	return getContest(ctx, s.db, id)
}

func getContest(ctx context.Context, q querier, id int64) (contest.Contest, error) {
	c, err := scanContest(q.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return contest.Contest{}, fmt.Errorf("contest %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return contest.Contest{}, fmt.Errorf("read contest: %w", err)
	}
	return c, nil
}

// ListContests returns all contests ordered by date, then id.
func (s *Store) ListContests(ctx context.Context) ([]contest.Contest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contestColumns+` FROM contests ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query contests: %w", err)
	}
	return collect(rows, "contests", scanContest)
}

func scanCoach(sc scanner) (contest.Coach, error) {
	var c contest.Coach
	var isJudge int
	err := sc.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Studio, &isJudge)
	c.IsJudge = isJudge == 1
	return c, err
}

// ListCoaches returns all coaches ordered by id.
func (s *Store) ListCoaches(ctx context.Context) ([]contest.Coach, error) {
	return listCoaches(ctx, s.db)
}

func listCoaches(ctx context.Context, q querier) ([]contest.Coach, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, phone, studio, is_judge
		FROM coaches ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query coaches: %w", err)
	}
	return collect(rows, "coaches", scanCoach)
}

const participantColumns = `p.id, p.first_name, p.last_name, p.birthdate, p.gender, p.citizenship, p.coach_id, p.studio, p.notes`

func scanParticipant(sc scanner) (contest.Participant, error) {
	var p contest.Participant
	var birth string
	var coach sql.NullInt64
	if err := sc.Scan(&p.ID, &p.FirstName, &p.LastName, &birth, &p.Gender, &p.Citizenship, &coach, &p.Studio, &p.Notes); err != nil {
		return contest.Participant{}, err
	}
	b, err := parseDate(birth)
	if err != nil {
		return contest.Participant{}, err
	}
	p.Birthdate, p.CoachID = b, coach.Int64
	return p, nil
}

// ListParticipants returns all participants ordered by id.
func (s *Store) ListParticipants(ctx context.Context) ([]contest.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants p ORDER BY p.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	return collect(rows, "participants", scanParticipant)
}

func listContestParticipants(ctx context.Context, q querier, contestID int64) ([]contest.Participant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+participantColumns+`
		FROM participants p
		WHERE p.id IN (
			SELECT r.participant_id FROM registrations r
			JOIN events e ON e.id = r.event_id
			WHERE e.contest_id = ?
		)
		ORDER BY p.id ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	return collect(rows, "participants", scanParticipant)
}

func scanJudge(sc scanner) (contest.Judge, error) {
	var j contest.Judge
	var coach sql.NullInt64
	err := sc.Scan(&j.ID, &j.ContestID, &coach, &j.FirstName, &j.LastName, &j.Email)
	j.CoachID = coach.Int64
	return j, err
}

// ListJudges returns a contest's judges ordered by id.
func (s *Store) ListJudges(ctx context.Context, contestID int64) ([]contest.Judge, error) {
	return listJudges(ctx, s.db, contestID)
}

func listJudges(ctx context.Context, q querier, contestID int64) ([]contest.Judge, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, contest_id, coach_id, first_name, last_name, email
		FROM judges WHERE contest_id = ? ORDER BY id ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query judges: %w", err)
	}
	return collect(rows, "judges", scanJudge)
}

// ListLaneJudges returns a contest's lane assignments ordered by lane.
func (s *Store) ListLaneJudges(ctx context.Context, contestID int64) ([]contest.LaneJudge, error) {
	return listLaneJudges(ctx, s.db, contestID)
}

func listLaneJudges(ctx context.Context, q querier, contestID int64) ([]contest.LaneJudge, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT contest_id, lane, judge_id FROM lane_judges
		WHERE contest_id = ? ORDER BY lane ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query lane judges: %w", err)
	}
	return collect(rows, "lane judges", func(sc scanner) (contest.LaneJudge, error) {
		var lj contest.LaneJudge
		err := sc.Scan(&lj.ContestID, &lj.Lane, &lj.JudgeID)
		return lj, err
	})
}

const eventColumns = `id, contest_id, event_type, status_level, age_division, age_min, age_max,
	time_min_seconds, time_max_seconds, performance_area_size`

func scanEvent(sc scanner) (contest.Event, error) {
	var e contest.Event
	var typ, status, age string
	var tmin, tmax int64
	err := sc.Scan(&e.ID, &e.ContestID, &typ, &status, &age, &e.AgeMin, &e.AgeMax, &tmin, &tmax, &e.AreaSize)
	e.Type, e.Status, e.Age = contest.EventType(typ), contest.StatusLevel(status), contest.AgeDivision(age)
	e.TimeMin, e.TimeMax = time.Duration(tmin)*time.Second, time.Duration(tmax)*time.Second
	return e, err
}

// ListEvents returns a contest's events ordered by id.
func (s *Store) ListEvents(ctx context.Context, contestID int64) ([]contest.Event, error) {
	return listEvents(ctx, s.db, contestID)
}

func listEvents(ctx context.Context, q querier, contestID int64) ([]contest.Event, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE contest_id = ? ORDER BY id ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collect(rows, "events", scanEvent)
}

// GetEvent reads one event.
func (s *Store) GetEvent(ctx context.Context, id int64) (contest.Event, error) {
	e, _, err := getEvent(ctx, s.db, id)
	return e, err
}

// getEvent returns the event and its data revision.
func getEvent(ctx context.Context, q querier, id int64) (contest.Event, int64, error) {
	var rev int64
	e, err := scanEvent(revisionScanner{q.QueryRowContext(ctx,
		`SELECT `+eventColumns+`, data_revision FROM events WHERE id = ?`, id), &rev})
	if errors.Is(err, sql.ErrNoRows) {
		return contest.Event{}, 0, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return contest.Event{}, 0, fmt.Errorf("read event: %w", err)
	}
	return e, rev, nil
}

// revisionScanner appends a trailing data_revision column to a scan.
type revisionScanner struct {
	sc  scanner
	rev *int64
}

func (r revisionScanner) Scan(dest ...any) error {
	return r.sc.Scan(append(dest, r.rev)...)
}

func scanRegistration(sc scanner) (contest.Registration, error) {
	var r contest.Registration
	var date string
	if err := sc.Scan(&r.ID, &r.EventID, &r.ParticipantID, &date); err != nil {
		return contest.Registration{}, err
	}
	d, err := parseDate(date)
	r.RegisteredAt = d
	return r, err
}

// ListRegistrations returns an event's registrations ordered by id.
func (s *Store) ListRegistrations(ctx context.Context, eventID int64) ([]contest.Registration, error) {
	return listRegistrations(ctx, s.db, eventID)
}

func listRegistrations(ctx context.Context, q querier, eventID int64) ([]contest.Registration, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, event_id, participant_id, registration_date
		FROM registrations WHERE event_id = ? ORDER BY id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	return collect(rows, "registrations", scanRegistration)
}

func listContestRegistrations(ctx context.Context, q querier, contestID int64) ([]contest.Registration, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT r.id, r.event_id, r.participant_id, r.registration_date
		FROM registrations r JOIN events e ON e.id = r.event_id
		WHERE e.contest_id = ? ORDER BY r.id ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	return collect(rows, "registrations", scanRegistration)
}

func scanStatus(sc scanner) (contest.ParticipantStatus, error) {
	var st contest.ParticipantStatus
	var typ, level string
	err := sc.Scan(&st.ID, &st.ParticipantID, &typ, &level, &st.Wins)
	st.EventType, st.Status = contest.EventType(typ), contest.StatusLevel(level)
	return st, err
}

// ListStatuses returns a participant's status records ordered by event type.
func (s *Store) ListStatuses(ctx context.Context, participantID int64) ([]contest.ParticipantStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, event_type, status_level, wins
		FROM participant_status WHERE participant_id = ? ORDER BY event_type ASC, id ASC
	`, participantID)
	if err != nil {
		return nil, fmt.Errorf("query participant status: %w", err)
	}
	return collect(rows, "participant status", scanStatus)
}

func listContestStatuses(ctx context.Context, q querier, contestID int64) ([]contest.ParticipantStatus, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, participant_id, event_type, status_level, wins
		FROM participant_status
		WHERE participant_id IN (
			SELECT r.participant_id FROM registrations r
			JOIN events e ON e.id = r.event_id
			WHERE e.contest_id = ?
		)
		ORDER BY participant_id ASC, event_type ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query participant status: %w", err)
	}
	return collect(rows, "participant status", scanStatus)
}
