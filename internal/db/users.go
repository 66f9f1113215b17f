package db

import "context"

const getUser = `
SELECT id, name, role, is_blocked, block_end_date, created_at
FROM users
WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(
		&u.ID,
		&u.Name,
		&u.Role,
		&u.IsBlocked,
		&u.BlockEndDate,
		&u.CreatedAt,
	)
	return u, err
}

const clearUserBlock = `
UPDATE users
SET is_blocked = 0, block_end_date = NULL
WHERE id = ?
`

func (q *Queries) ClearUserBlock(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearUserBlock, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const blockUser = `
UPDATE users
SET is_blocked = 1, block_end_date = ?
WHERE id = ?
`

func (q *Queries) BlockUser(ctx context.Context, arg BlockUserParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, blockUser, arg.BlockEndDate, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getCourt = `
SELECT id, facility_id, name, capacity, price_per_hour_cents
FROM courts
WHERE id = ?
`

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	var c Court
	err := q.db.QueryRowContext(ctx, getCourt, id).Scan(
		&c.ID,
		&c.FacilityID,
		&c.Name,
		&c.Capacity,
		&c.PricePerHourCents,
	)
	return c, err
}

const getFacility = `
SELECT id, owner_id, name, city
FROM facilities
WHERE id = ?
`

func (q *Queries) GetFacility(ctx context.Context, id int64) (Facility, error) {
	var f Facility
	err := q.db.QueryRowContext(ctx, getFacility, id).Scan(
		&f.ID,
		&f.OwnerID,
		&f.Name,
		&f.City,
	)
	return f, err
}

const sportExists = `
SELECT EXISTS (SELECT 1 FROM sports WHERE id = ?)
`

func (q *Queries) SportExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, sportExists, id).Scan(&exists)
	return exists, err
}
