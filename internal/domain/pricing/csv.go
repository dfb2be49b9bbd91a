package pricing

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// RawFeed представляет разобранный прайс-лист поставщика:
// упорядоченный список заголовков и строки данных в порядке файла.
// После разбора структура не изменяется.
type RawFeed struct {
	Headers []string
	Rows    [][]string

	index map[string]int // заголовок -> позиция колонки, первое вхождение
}

// ParseFeed разбирает сырой текст фида в RawFeed.
// Первая строка считается заголовком. Поддерживаются BOM, кавычки по RFC 4180
// (включая запятые, переводы строк и удвоенные кавычки внутри поля) и строки
// с разным числом колонок. Пустой вход или вход без заголовка дают ErrParse.
func ParseFeed(text string) (*RawFeed, error) {
	text = strings.TrimPrefix(text, "\uFEFF")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	feed := &RawFeed{
		Headers: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		feed.Headers[i] = h
		if _, ok := feed.index[h]; !ok {
			feed.index[h] = i
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if isBlankRecord(record) {
			continue
		}
		feed.Rows = append(feed.Rows, record)
	}

	return feed, nil
}

// Cell возвращает значение ячейки строки row по имени заголовка.
// Если заголовок неизвестен или строка короче, возвращается пустая строка.
func (f *RawFeed) Cell(row []string, header string) string {
	i, ok := f.index[header]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// HasHeader сообщает, присутствует ли заголовок в фиде.
func (f *RawFeed) HasHeader(header string) bool {
	_, ok := f.index[header]
	return ok
}

// Preview возвращает первые limit строк фида в виде map заголовок -> значение.
// Используется API для показа загруженного фида до настройки маппинга.
func (f *RawFeed) Preview(limit int) []map[string]string {
	if limit <= 0 || limit > len(f.Rows) {
		limit = len(f.Rows)
	}
	out := make([]map[string]string, 0, limit)
	for _, row := range f.Rows[:limit] {
		record := make(map[string]string, len(f.Headers))
		for _, h := range f.Headers {
			record[h] = f.Cell(row, h)
		}
		out = append(out, record)
	}
	return out
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
