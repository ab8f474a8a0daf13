package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// FindCredential loads a login principal from one credential table. Users
// are matched on username, team leads and store managers on staff_id.
func (s *Store) FindCredential(ctx context.Context, table Table, identifier string) (*Credential, error) {
	c := &Credential{Table: table}
	var err error

	switch table {
	case TableUsers:
		var fullName, store sql.NullString
		err = s.db.QueryRowContext(ctx, `
			SELECT id, username, full_name, role, store_assigned, hashed_password, refresh_token
			FROM users WHERE username = $1
		`, identifier).Scan(&c.ID, &c.Username, &fullName, &c.Role, &store, &c.HashedPassword, &c.RefreshToken)
		c.FullName = fullName.String
		c.Store = store.String
	case TableTeamLeads, TableStoreManagers:
		name, role := "team_lead_staff", RoleTeamLead
		if table == TableStoreManagers {
			name, role = "store_manager_staff", RoleStoreManager
		}
		c.Role = role
		err = s.db.QueryRowContext(ctx, fmt.Sprintf(`
			SELECT id, staff_id, full_name, store_assigned, hashed_password, refresh_token
			FROM %s WHERE staff_id = $1
		`, name), identifier).Scan(&c.ID, &c.Username, &c.FullName, &c.Store, &c.HashedPassword, &c.RefreshToken)
	default:
		return nil, fmt.Errorf("unknown credential table %q", table)
	}

	if err != nil {
		return nil, notFound(err, "credential "+identifier)
	}
	return c, nil
}

// SaveRefreshToken stores the current refresh token of a principal. An
// empty token clears it, which logs the principal out everywhere.
func (s *Store) SaveRefreshToken(ctx context.Context, table Table, id int64, token string) error {
	var name string
	switch table {
	case TableUsers:
		name = "users"
	case TableTeamLeads:
		name = "team_lead_staff"
	case TableStoreManagers:
		name = "store_manager_staff"
	default:
		return fmt.Errorf("unknown credential table %q", table)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET refresh_token = $1 WHERE id = $2", name),
		nullString(token), id)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("principal %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users u WHERE u.id = $1", id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users u WHERE u.username = $1", username))
	if err != nil {
		return nil, notFound(err, "user "+username)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (full_name, username, hashed_password, role, store_assigned)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.FullName, u.Username, u.HashedPassword, u.Role, u.StoreAssigned).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if _, dup := UniqueViolation(err); dup {
			return fmt.Errorf("username %s: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// EnsureUser creates u unless its username is already taken. It reports
// whether a row was inserted.
func (s *Store) EnsureUser(ctx context.Context, u *User) (bool, error) {
	_, err := s.GetUserByUsername(ctx, u.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := s.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateSalesExecutive registers a sales executive under the next free
// SE-{store code}-NNN username of store.
func (s *Store) CreateSalesExecutive(ctx context.Context, fullName, hashedPassword, store string) (*User, error) {
	prefix := SalesExecutivePrefix(store)
	u := &User{
		FullName:       nullString(fullName),
		HashedPassword: hashedPassword,
		Role:           RoleSalesExecutive,
		StoreAssigned:  nullString(store),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockSequence(ctx, tx, prefix); err != nil {
			return err
		}
		existing, err := selectStrings(ctx, tx, "SELECT username FROM users WHERE username LIKE $1", prefix+"%")
		if err != nil {
			return err
		}
		u.Username = NextSequenceID(prefix, existing)

		return tx.QueryRowContext(ctx, `
			INSERT INTO users (full_name, username, hashed_password, role, store_assigned)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at
		`, u.FullName, u.Username, u.HashedPassword, u.Role, u.StoreAssigned).Scan(&u.ID, &u.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sales executive: %w", err)
	}
	return u, nil
}

// ListSalesExecutives returns the sales executives of store, newest first.
func (s *Store) ListSalesExecutives(ctx context.Context, store string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.store_assigned = $1 AND u.role = $2
		ORDER BY u.id DESC
	`, store, RoleSalesExecutive)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales executives: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserNames maps user ids to display names. Unknown ids are left out.
func (s *Store) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users u WHERE u.id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query user names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		names[u.ID] = u.DisplayName()
	}
	return names, rows.Err()
}

func staffTable(table Table) (string, string, error) {
	switch table {
	case TableTeamLeads:
		return "team_lead_staff", "TL", nil
	case TableStoreManagers:
		return "store_manager_staff", "SM", nil
	}
	return "", "", fmt.Errorf("%q is not a staff table", table)
}

// CreateStaff registers a team lead or store manager under the next free
// {TL|SM}-{location}-NNN staff id.
func (s *Store) CreateStaff(ctx context.Context, table Table, fullName, hashedPassword, store string) (*Staff, error) {
	name, roleCode, err := staffTable(table)
	if err != nil {
		return nil, err
	}
	prefix := StaffPrefix(roleCode, store)
	st := &Staff{FullName: fullName, HashedPassword: hashedPassword, StoreAssigned: store}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockSequence(ctx, tx, prefix); err != nil {
			return err
		}
		existing, err := selectStrings(ctx, tx, fmt.Sprintf("SELECT staff_id FROM %s WHERE staff_id LIKE $1", name), prefix+"%")
		if err != nil {
			return err
		}
		st.StaffID = NextSequenceID(prefix, existing)

		return tx.QueryRowContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (staff_id, full_name, hashed_password, store_assigned)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, name), st.StaffID, st.FullName, st.HashedPassword, st.StoreAssigned).Scan(&st.ID, &st.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create staff: %w", err)
	}
	return st, nil
}

// ListStaff returns every account of a staff table, newest first.
func (s *Store) ListStaff(ctx context.Context, table Table) ([]*Staff, error) {
	name, _, err := staffTable(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, staff_id, full_name, hashed_password, store_assigned, created_at
		FROM %s ORDER BY created_at DESC, id DESC
	`, name))
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	var staff []*Staff
	for rows.Next() {
		st := &Staff{}
		if err := rows.Scan(&st.ID, &st.StaffID, &st.FullName, &st.HashedPassword, &st.StoreAssigned, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		staff = append(staff, st)
	}
	return staff, rows.Err()
}

func selectStrings(ctx context.Context, q queryer, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
