package db

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minQuestionOptions = 2

// QuestionRecord is one row of a question bank CSV:
// category,text,option_1,...,option_n,correct_index (zero based).
type QuestionRecord struct {
	Category     string
	Text         string
	Options      []string
	CorrectIndex int
}

// QuestionBank draws question batches out of Postgres.
type QuestionBank struct {
	db *gorm.DB
}

func NewQuestionBank(conn *gorm.DB) *QuestionBank {
	return &QuestionBank{db: conn}
}

// Fetch returns up to count questions in random order. An empty category
// draws from the whole bank.
func (b *QuestionBank) Fetch(ctx context.Context, count int, category string) ([]Question, error) {
	if b == nil || b.db == nil {
		return nil, errors.New("question bank not configured")
	}
	if count <= 0 {
		return nil, nil
	}
	query := b.db.WithContext(ctx).Model(&Question{})
	if category = strings.TrimSpace(category); category != "" {
		query = query.Where("category = ?", category)
	}
	var records []Question
	if err := query.Order(clause.Expr{SQL: "RANDOM()"}).Limit(count).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Categories lists the distinct categories present in the bank.
func (b *QuestionBank) Categories(ctx context.Context) ([]string, error) {
	if b == nil || b.db == nil {
		return nil, errors.New("question bank not configured")
	}
	var categories []string
	err := b.db.WithContext(ctx).
		Model(&Question{}).
		Where("category <> ''").
		Distinct().
		Order("category asc").
		Pluck("category", &categories).Error
	return categories, err
}

// LoadQuestions reads a CSV and inserts its questions, skipping rows that
// already exist for the same category and text.
func LoadQuestions(ctx context.Context, conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	records, err := ReadQuestions(file)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		entry := Question{
			Category:     record.Category,
			Text:         record.Text,
			Options:      datatypes.NewJSONSlice(record.Options),
			CorrectIndex: record.CorrectIndex,
		}
		result := conn.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				continue
			}
			return inserted, result.Error
		}
		if result.RowsAffected > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// ReadQuestions parses question rows. The first row is a header.
func ReadQuestions(r io.Reader) ([]QuestionRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []QuestionRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 3+minQuestionOptions {
			continue
		}
		record, err := parseQuestionRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseQuestionRow(row []string) (QuestionRecord, error) {
	category := strings.TrimSpace(row[0])
	text := strings.TrimSpace(row[1])
	if text == "" {
		return QuestionRecord{}, errors.New("question text is empty")
	}
	last := len(row) - 1
	correct, err := strconv.Atoi(strings.TrimSpace(row[last]))
	if err != nil {
		return QuestionRecord{}, fmt.Errorf("invalid correct index %q", row[last])
	}
	cells := row[2:last]
	for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
		cells = cells[:len(cells)-1]
	}
	options := make([]string, 0, len(cells))
	for i, option := range cells {
		option = strings.TrimSpace(option)
		if option == "" {
			// correct_index counts columns; dropping a gap would shift it.
			return QuestionRecord{}, fmt.Errorf("option %d is blank", i)
		}
		options = append(options, option)
	}
	if len(options) < minQuestionOptions {
		return QuestionRecord{}, errors.New("question needs at least two options")
	}
	if correct < 0 || correct >= len(options) {
		return QuestionRecord{}, fmt.Errorf("correct index %d out of range", correct)
	}
	return QuestionRecord{
		Category:     category,
		Text:         text,
		Options:      options,
		CorrectIndex: correct,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
