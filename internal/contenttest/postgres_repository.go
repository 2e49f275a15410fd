// internal/contenttest/postgres_repository.go
package contenttest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepository persists test cases in content_tests and its two child
// tables. Child rows cascade on delete.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	insertTestSQL = `INSERT INTO content_tests
		(id, problem_location, should_be, verdict, response_dict, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateTestSQL = `UPDATE content_tests
		SET problem_location = $2, should_be = $3, verdict = $4, response_dict = $5, updated_at = $6
		WHERE id = $1`

	selectTestSQL = `SELECT id, problem_location, should_be, verdict, response_dict, created_at, updated_at
		FROM content_tests WHERE id = $1`

	selectRecordsSQL = `SELECT r.id, r.string_id, r.xml_hash, r.shape_hash,
		i.id, i.string_id, i.response_index, i.input_index, i.answer
		FROM content_test_responses r
		LEFT JOIN content_test_inputs i ON i.response_id = r.id
		WHERE r.test_id = $1
		ORDER BY r.position, i.input_index`

	selectByProblemSQL = `SELECT id FROM content_tests WHERE problem_location = $1 ORDER BY created_at, id`

	deleteRecordsSQL = `DELETE FROM content_test_responses WHERE test_id = $1`

	insertResponseSQL = `INSERT INTO content_test_responses (id, test_id, string_id, xml_hash, shape_hash, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertInputSQL = `INSERT INTO content_test_inputs (id, response_id, string_id, response_index, input_index, answer)
		VALUES ($1, $2, $3, $4, $5, $6)`

	deleteTestSQL = `DELETE FROM content_tests WHERE id = $1`
)

func (r *PostgresRepository) Create(ctx context.Context, tc *TestCase) error {
	answers, err := json.Marshal(tc.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertTestSQL,
		tc.ID, tc.ProblemLocation, string(tc.ShouldBe), string(tc.Verdict), answers,
		tc.CreatedAt, tc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert test case: %w", err)
	}
	if err := insertRecords(ctx, tx, tc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	tc.MarkClean()
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, tc *TestCase) error {
	answers, err := json.Marshal(tc.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, updateTestSQL,
		tc.ID, tc.ProblemLocation, string(tc.ShouldBe), string(tc.Verdict), answers, tc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update test case: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrTestCaseNotFound, tc.ID)
	}

	if _, err := tx.ExecContext(ctx, deleteRecordsSQL, tc.ID); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if err := insertRecords(ctx, tx, tc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	tc.MarkClean()
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, tc *TestCase) error {
	for pos, rec := range tc.Responses {
		if _, err := tx.ExecContext(ctx, insertResponseSQL,
			rec.ID, tc.ID, rec.StringID, rec.Hash, rec.Shape, pos); err != nil {
			return fmt.Errorf("insert response %s: %w", rec.StringID, err)
		}
		for _, f := range rec.Fields {
			if _, err := tx.ExecContext(ctx, insertInputSQL,
				f.ID, rec.ID, f.StringID, f.ResponseIndex, f.InputIndex, f.Answer); err != nil {
				return fmt.Errorf("insert input %s: %w", f.StringID, err)
			}
		}
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*TestCase, error) {
	var (
		tc       TestCase
		shouldBe string
		verdict  string
		answers  []byte
	)
	err := r.db.QueryRowContext(ctx, selectTestSQL, id).Scan(
		&tc.ID, &tc.ProblemLocation, &shouldBe, &verdict, &answers, &tc.CreatedAt, &tc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTestCaseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select test case: %w", err)
	}
	tc.ShouldBe = Expectation(shouldBe)
	tc.Verdict = Verdict(verdict)
	tc.Answers = Answers{}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &tc.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}

	rows, err := r.db.QueryContext(ctx, selectRecordsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*ResponseRecord)
	for rows.Next() {
		var (
			respID, stringID, hash string
			shape                  string
			inID, inStringID       sql.NullString
			respIndex, inputIndex  sql.NullInt64
			answer                 sql.NullString
		)
		if err := rows.Scan(&respID, &stringID, &hash, &shape,
			&inID, &inStringID, &respIndex, &inputIndex, &answer); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, ok := byID[respID]
		if !ok {
			rec = &ResponseRecord{ID: respID, StringID: stringID, Hash: hash, Shape: shape}
			byID[respID] = rec
			tc.Responses = append(tc.Responses, rec)
		}
		if inID.Valid {
			rec.Fields = append(rec.Fields, &FieldRecord{
				ID:            inID.String,
				StringID:      inStringID.String,
				ResponseIndex: int(respIndex.Int64),
				InputIndex:    int(inputIndex.Int64),
				Answer:        answer.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	tc.MarkClean()
	return &tc, nil
}

func (r *PostgresRepository) ListByProblem(ctx context.Context, location string) ([]*TestCase, error) {
	rows, err := r.db.QueryContext(ctx, selectByProblemSQL, location)
	if err != nil {
		return nil, fmt.Errorf("list test cases: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}

	out := make([]*TestCase, 0, len(ids))
	for _, id := range ids {
		tc, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteTestSQL, id)
	if err != nil {
		return fmt.Errorf("delete test case: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrTestCaseNotFound, id)
	}
	return nil
}
