package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/requisition-service/internal/domain"
)

// ErrStatusConflict is returned when a compare-and-swap status update finds
// the requisition no longer in the expected state. Two in-flight transitions
// on the same requisition resolve here: the second writer loses.
var ErrStatusConflict = errors.New("requisition status changed concurrently")

// RequisitionFilter captures listing parameters. Role-based visibility and
// ordering are applied in the service so the cached per-type lists stay
// shareable across callers.
type RequisitionFilter struct {
	Type *domain.RequisitionType
}

// RequisitionRepository encapsulates requisition persistence.
type RequisitionRepository interface {
	Create(ctx context.Context, req *domain.Requisition) error
	GetByID(ctx context.Context, id string) (*domain.Requisition, error)
	List(ctx context.Context, filter RequisitionFilter) ([]domain.Requisition, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.Status) (time.Time, error)
	UpdateFields(ctx context.Context, req *domain.Requisition) error
	SetAssignee(ctx context.Context, id string, assignee string) error
	SetReplacementConfirmed(ctx context.Context, id string, confirmed bool) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, t domain.RequisitionType) (map[domain.Status]int, error)
}

type requisitionRepository struct {
	pool *pgxpool.Pool
}

// NewRequisitionRepository instantiates repository.
func NewRequisitionRepository(pool *pgxpool.Pool) RequisitionRepository {
	return &requisitionRepository{pool: pool}
}

const requisitionColumns = `
    r.id, r.display_id, r.requester_id, r.requisition_type, r.status, r.subject, r.description,
    r.priority, r.created_at, r.updated_at,
    r.it_category, r.assigned_to,
    r.room_name, r.start_datetime, r.end_datetime, r.attendees_count, r.equipment_needed,
    r.leave_type, r.start_date, r.end_date, r.total_days, r.replacement_user_id,
    r.replacement_name, r.replacement_confirmed,
    u.full_name, u.email, u.designation`

const requisitionFrom = ` FROM requisitions r JOIN users u ON u.id = r.requester_id`

func (r *requisitionRepository) Create(ctx context.Context, req *domain.Requisition) error {
	const query = `
        INSERT INTO requisitions (
            display_id, requester_id, requisition_type, status, subject, description, priority,
            it_category, assigned_to,
            room_name, start_datetime, end_datetime, attendees_count, equipment_needed,
            leave_type, start_date, end_date, total_days, replacement_user_id, replacement_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
        RETURNING id, created_at, updated_at`

	var (
		itCategory, assignedTo            *string
		roomName, equipment               *string
		startDT, endDT                    *time.Time
		attendees                         *int
		leaveType, replacementName        *string
		startDate, endDate                *time.Time
		totalDays                         *int
		replacementUserID                 *string
	)
	switch req.Type {
	case domain.TypeIT:
		itCategory = &req.IT.Category
		assignedTo = req.IT.AssignedTo
	case domain.TypeConferenceRoom:
		cr := req.ConferenceRoom
		roomName = &cr.RoomName
		startDT = &cr.StartDatetime
		endDT = &cr.EndDatetime
		attendees = &cr.AttendeesCount
		equipment = cr.Equipment
	case domain.TypeLeave:
		lv := req.Leave
		leaveType = &lv.LeaveType
		startDate = &lv.StartDate
		endDate = &lv.EndDate
		totalDays = &lv.TotalDays
		replacementUserID = lv.ReplacementUserID
		replacementName = &lv.ReplacementName
	}

	return r.pool.QueryRow(ctx, query,
		req.DisplayID,
		req.RequesterID,
		req.Type,
		req.Status,
		req.Subject,
		req.Description,
		req.Priority,
		itCategory,
		assignedTo,
		roomName,
		startDT,
		endDT,
		attendees,
		equipment,
		leaveType,
		startDate,
		endDate,
		totalDays,
		replacementUserID,
		replacementName,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *requisitionRepository) GetByID(ctx context.Context, id string) (*domain.Requisition, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+requisitionColumns+requisitionFrom+` WHERE r.id=$1`, id)
	return scanRequisition(row)
}

func (r *requisitionRepository) List(ctx context.Context, filter RequisitionFilter) ([]domain.Requisition, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("r.requisition_type=$%d", len(args)))
	}

	query := `SELECT` + requisitionColumns + requisitionFrom +
		` WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY r.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

// UpdateStatus applies a lifecycle transition with a compare-and-swap on the
// expected current status. Returns the new updated_at on success and
// ErrStatusConflict when the row was not in the expected state.
func (r *requisitionRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (time.Time, error) {
	const query = `
        UPDATE requisitions SET status=$3, updated_at=NOW()
        WHERE id=$1 AND status=$2
        RETURNING updated_at`
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, query, id, from, to).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrStatusConflict
	}
	return updatedAt, err
}

func (r *requisitionRepository) UpdateFields(ctx context.Context, req *domain.Requisition) error {
	const query = `
        UPDATE requisitions SET subject=$1, description=$2, priority=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, req.Subject, req.Description, req.Priority, req.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requisitionRepository) SetAssignee(ctx context.Context, id string, assignee string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE requisitions SET assigned_to=$2, updated_at=NOW() WHERE id=$1`, id, assignee)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requisitionRepository) SetReplacementConfirmed(ctx context.Context, id string, confirmed bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE requisitions SET replacement_confirmed=$2, updated_at=NOW() WHERE id=$1`, id, confirmed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requisitionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM requisitions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requisitionRepository) CountByStatus(ctx context.Context, t domain.RequisitionType) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM requisitions WHERE requisition_type=$1 GROUP BY status`, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanRequisition(row pgx.Row) (*domain.Requisition, error) {
	var (
		req                        domain.Requisition
		itCategory, assignedTo     *string
		roomName, equipment        *string
		startDT, endDT             *time.Time
		attendees                  *int
		leaveType, replacementName *string
		startDate, endDate         *time.Time
		totalDays                  *int
		replacementUserID          *string
		replacementConfirmed       *bool
	)
	if err := row.Scan(
		&req.ID,
		&req.DisplayID,
		&req.RequesterID,
		&req.Type,
		&req.Status,
		&req.Subject,
		&req.Description,
		&req.Priority,
		&req.CreatedAt,
		&req.UpdatedAt,
		&itCategory,
		&assignedTo,
		&roomName,
		&startDT,
		&endDT,
		&attendees,
		&equipment,
		&leaveType,
		&startDate,
		&endDate,
		&totalDays,
		&replacementUserID,
		&replacementName,
		&replacementConfirmed,
		&req.RequesterName,
		&req.RequesterEmail,
		&req.RequesterDesignation,
	); err != nil {
		return nil, err
	}

	switch req.Type {
	case domain.TypeIT:
		req.IT = &domain.ITDetails{AssignedTo: assignedTo}
		if itCategory != nil {
			req.IT.Category = *itCategory
		}
	case domain.TypeConferenceRoom:
		cr := &domain.ConferenceRoomDetails{Equipment: equipment}
		if roomName != nil {
			cr.RoomName = *roomName
		}
		if startDT != nil {
			cr.StartDatetime = *startDT
		}
		if endDT != nil {
			cr.EndDatetime = *endDT
		}
		if attendees != nil {
			cr.AttendeesCount = *attendees
		}
		req.ConferenceRoom = cr
	case domain.TypeLeave:
		lv := &domain.LeaveDetails{
			ReplacementUserID:    replacementUserID,
			ReplacementConfirmed: replacementConfirmed,
		}
		if leaveType != nil {
			lv.LeaveType = *leaveType
		}
		if startDate != nil {
			lv.StartDate = *startDate
		}
		if endDate != nil {
			lv.EndDate = *endDate
		}
		if totalDays != nil {
			lv.TotalDays = *totalDays
		}
		if replacementName != nil {
			lv.ReplacementName = *replacementName
		}
		req.Leave = lv
	}
	return &req, nil
}
