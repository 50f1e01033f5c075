// Package pg implements the domain repositories over PostgreSQL. Army
// compositions (units, equipment, pets, tags) are stored as JSONB; votes,
// bookmarks and comments are relational so per-viewer state stays cheap to
// join.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"clasharmies.app/internal/domain"
)

type Store struct {
	db *sql.DB
}

var (
	_ domain.ArmyRepository = (*Store)(nil)
	_ domain.UserRepository = (*Store)(nil)
)

// Open connects with pool defaults tuned for a request-serving process.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle; used by tests with sqlmock.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// --- users ---

const userColumns = `id, username, google_id, google_email, player_tag, level, token_version, created_at`

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return s.scanUser(ctx, row)
}

func (s *Store) FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where google_id = $1`, googleID)
	return s.scanUser(ctx, row)
}

func (s *Store) scanUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	var u domain.User
	var playerTag sql.NullString
	var level sql.NullInt64
	err := row.Scan(&u.ID, &u.Username, &u.GoogleID, &u.GoogleEmail,
		&playerTag, &level, &u.TokenVersion, &u.CreatedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.PlayerTag = playerTag.String
	u.Level = int(level.Int64)

	rows, err := s.db.QueryContext(ctx,
		`select role from user_roles where user_id = $1 order by role`, u.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		u.Roles = append(u.Roles, role)
	}
	return &u, rows.Err()
}

// Create persists the user and its role assignments in one transaction. When
// Username is empty the default "Warrior-{id}" handle is assigned inside the
// same transaction, mirroring the web application's behaviour.
func (s *Store) Create(ctx context.Context, user *domain.User) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if user.TokenVersion == 0 {
		user.TokenVersion = 1
	}
	err = tx.QueryRowContext(ctx, `
		insert into users(username, google_id, google_email, player_tag, level, token_version, created_at)
		values ($1, $2, $3, nullif($4, ''), nullif($5, 0), $6, now())
		returning id, created_at
	`, user.Username, user.GoogleID, user.GoogleEmail, user.PlayerTag, user.Level, user.TokenVersion).
		Scan(&user.ID, &user.CreatedTime)
	if err != nil {
		return 0, err
	}

	if user.Username == "" {
		user.Username = fmt.Sprintf("Warrior-%d", user.ID)
		if _, err := tx.ExecContext(ctx,
			`update users set username = $1 where id = $2`, user.Username, user.ID); err != nil {
			return 0, err
		}
	}

	if len(user.Roles) == 0 {
		user.Roles = []string{"user"}
	}
	for _, role := range user.Roles {
		if _, err := tx.ExecContext(ctx,
			`insert into user_roles(user_id, role) values ($1, $2)`, user.ID, role); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (s *Store) UpdateUsername(ctx context.Context, id int64, username string) error {
	return s.execOnUser(ctx, `update users set username = $1 where id = $2`, username, id)
}

func (s *Store) UpdateGoogleEmail(ctx context.Context, id int64, email string) error {
	return s.execOnUser(ctx, `update users set google_email = $1 where id = $2`, email, id)
}

func (s *Store) execOnUser(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) TokenVersion(ctx context.Context, id int64) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`select token_version from users where id = $1`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	return version, err
}

func (s *Store) BumpTokenVersion(ctx context.Context, id int64) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`update users set token_version = token_version + 1 where id = $1 returning token_version`, id).
		Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	return version, err
}

// --- armies ---

const armySelect = `
	select a.id, a.name, a.town_hall, a.banner, a.score, a.page_views,
	       a.units, a.equipment, a.pets, a.tags, a.guide,
	       a.created_by, u.username, a.created_at, a.updated_at,
	       coalesce(v.votes, 0),
	       coalesce(uv.vote, 0),
	       (ub.user_id is not null)
	from armies a
	join users u on u.id = a.created_by
	left join (select army_id, sum(vote) as votes from army_votes group by army_id) v
	       on v.army_id = a.id
	left join army_votes uv on uv.army_id = a.id and uv.user_id = $1
	left join army_bookmarks ub on ub.army_id = a.id and ub.user_id = $1`

func (s *Store) List(ctx context.Context, filter domain.ArmyFilter) ([]domain.Army, error) {
	query := armySelect
	args := []any{filter.ViewerID}
	var where []string
	if filter.TownHall != 0 {
		args = append(args, filter.TownHall)
		where = append(where, fmt.Sprintf("a.town_hall = $%d", len(args)))
	}
	if filter.Creator != "" {
		args = append(args, filter.Creator)
		where = append(where, fmt.Sprintf("lower(u.username) = lower($%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("a.name ilike $%d", len(args)))
	}
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += orderClause(filter.Sort)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Army
	for rows.Next() {
		army, err := scanArmy(rows)
		if err != nil {
			return nil, err
		}
		if !hasAllTags(army.Tags, filter.Tags) {
			continue
		}
		out = append(out, *army)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id, viewerID int64) (*domain.Army, error) {
	rows, err := s.db.QueryContext(ctx, armySelect+" where a.id = $2", viewerID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	army, err := scanArmy(rows)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	army.Comments = comments
	return army, nil
}

func (s *Store) Save(ctx context.Context, army *domain.Army) (int64, error) {
	units, err := json.Marshal(army.Units)
	if err != nil {
		return 0, err
	}
	equipment, err := json.Marshal(army.Equipment)
	if err != nil {
		return 0, err
	}
	pets, err := json.Marshal(army.Pets)
	if err != nil {
		return 0, err
	}
	tags, err := json.Marshal(army.Tags)
	if err != nil {
		return 0, err
	}
	var guide []byte
	if army.Guide != nil {
		if guide, err = json.Marshal(army.Guide); err != nil {
			return 0, err
		}
	}

	if army.ID == 0 {
		err = s.db.QueryRowContext(ctx, `
			insert into armies(name, town_hall, banner, score, page_views, units, equipment, pets, tags, guide, created_by, created_at, updated_at)
			values ($1, $2, $3, $4, 0, $5, $6, $7, $8, $9, $10, now(), now())
			returning id
		`, army.Name, army.TownHall, army.Banner, army.Score,
			units, equipment, pets, tags, guide, army.CreatedBy).Scan(&army.ID)
		return army.ID, err
	}

	res, err := s.db.ExecContext(ctx, `
		update armies
		set name = $1, town_hall = $2, banner = $3, units = $4, equipment = $5, pets = $6, tags = $7, guide = $8, updated_at = now()
		where id = $9
	`, army.Name, army.TownHall, army.Banner, units, equipment, pets, tags, guide, army.ID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, domain.ErrNotFound
	}
	return army.ID, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from armies where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SaveVote(ctx context.Context, armyID, userID int64, vote int) error {
	_, err := s.db.ExecContext(ctx, `
		insert into army_votes(army_id, user_id, vote)
		values ($1, $2, $3)
		on conflict (army_id, user_id) do update set vote = excluded.vote
	`, armyID, userID, vote)
	return err
}

func (s *Store) Bookmark(ctx context.Context, armyID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		insert into army_bookmarks(army_id, user_id)
		values ($1, $2)
		on conflict do nothing
	`, armyID, userID)
	return err
}

func (s *Store) RemoveBookmark(ctx context.Context, armyID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`delete from army_bookmarks where army_id = $1 and user_id = $2`, armyID, userID)
	return err
}

func (s *Store) SavedArmies(ctx context.Context, userID int64) ([]domain.Army, error) {
	query := armySelect + ` where ub.user_id is not null order by a.created_at desc`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Army
	for rows.Next() {
		army, err := scanArmy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *army)
	}
	return out, rows.Err()
}

// --- comments ---

func (s *Store) SaveComment(ctx context.Context, comment *domain.Comment) (int64, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into army_comments(army_id, user_id, comment, reply_to, created_at)
		values ($1, $2, $3, $4, now())
		returning id, created_at
	`, comment.ArmyID, comment.UserID, comment.Comment, comment.ReplyTo).
		Scan(&comment.ID, &comment.CreatedTime)
	return comment.ID, err
}

func (s *Store) DeleteComment(ctx context.Context, commentID int64) error {
	res, err := s.db.ExecContext(ctx, `delete from army_comments where id = $1`, commentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

func (s *Store) GetComment(ctx context.Context, commentID int64) (*domain.Comment, error) {
	var c domain.Comment
	var replyTo sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		select c.id, c.army_id, c.user_id, u.username, c.comment, c.reply_to, c.created_at
		from army_comments c
		join users u on u.id = c.user_id
		where c.id = $1
	`, commentID).Scan(&c.ID, &c.ArmyID, &c.UserID, &c.Username, &c.Comment, &replyTo, &c.CreatedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if replyTo.Valid {
		v := replyTo.Int64
		c.ReplyTo = &v
	}
	return &c, nil
}

func (s *Store) commentsFor(ctx context.Context, armyID int64) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select c.id, c.army_id, c.user_id, u.username, c.comment, c.reply_to, c.created_at
		from army_comments c
		join users u on u.id = c.user_id
		where c.army_id = $1
		order by c.created_at
	`, armyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var replyTo sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ArmyID, &c.UserID, &c.Username, &c.Comment, &replyTo, &c.CreatedTime); err != nil {
			return nil, err
		}
		if replyTo.Valid {
			v := replyTo.Int64
			c.ReplyTo = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArmy(row rowScanner) (*domain.Army, error) {
	var a domain.Army
	var units, equipment, pets, tags, guide []byte
	err := row.Scan(&a.ID, &a.Name, &a.TownHall, &a.Banner, &a.Score, &a.PageViews,
		&units, &equipment, &pets, &tags, &guide,
		&a.CreatedBy, &a.Username, &a.CreatedTime, &a.UpdatedTime,
		&a.Votes, &a.UserVote, &a.UserBookmarked)
	if err != nil {
		return nil, err
	}
	if len(guide) > 0 {
		a.Guide = new(domain.Guide)
		if err := json.Unmarshal(guide, a.Guide); err != nil {
			return nil, fmt.Errorf("decode guide: %w", err)
		}
	}
	if err := json.Unmarshal(units, &a.Units); err != nil {
		return nil, fmt.Errorf("decode units: %w", err)
	}
	if err := json.Unmarshal(equipment, &a.Equipment); err != nil {
		return nil, fmt.Errorf("decode equipment: %w", err)
	}
	if err := json.Unmarshal(pets, &a.Pets); err != nil {
		return nil, fmt.Errorf("decode pets: %w", err)
	}
	if err := json.Unmarshal(tags, &a.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &a, nil
}

func orderClause(sort domain.SortOption) string {
	switch sort {
	case domain.SortScore:
		return " order by a.score desc"
	case domain.SortPopular, domain.SortLikes:
		return " order by coalesce(v.votes, 0) desc"
	case domain.SortViews:
		return " order by a.page_views desc"
	case domain.SortComments:
		return " order by (select count(*) from army_comments c where c.army_id = a.id) desc"
	default:
		return " order by a.created_at desc"
	}
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
