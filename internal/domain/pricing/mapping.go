package pricing

import (
	"fmt"
	"strings"
)

// Field - семантическое поле, к которому привязывается колонка фида.
type Field string

const (
	FieldSKU    Field = "sku"
	FieldCost   Field = "cost"
	FieldName   Field = "name"
	FieldBrand  Field = "brand"
	FieldUPC    Field = "upc"
	FieldLength Field = "length"
	FieldWidth  Field = "width"
	FieldHeight Field = "height"
	FieldWeight Field = "weight"
	FieldMSRP   Field = "msrp"
)

// Fields перечисляет все поддерживаемые поля в фиксированном порядке.
var Fields = []Field{
	FieldSKU, FieldCost, FieldName, FieldBrand, FieldUPC,
	FieldLength, FieldWidth, FieldHeight, FieldWeight, FieldMSRP,
}

// RequiredFields - поля, без которых расчет цен невозможен.
var RequiredFields = []Field{FieldSKU, FieldCost}

// ColumnMapping сопоставляет семантическое поле имени колонки фида.
// Пустое значение или отсутствие ключа означает "не сопоставлено".
type ColumnMapping map[Field]string

// Validate проверяет, что обязательные поля сопоставлены и их колонки
// присутствуют в списке заголовков. Возвращает ErrMappingIncomplete.
func (m ColumnMapping) Validate(headers []string) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	for _, field := range RequiredFields {
		header := m[field]
		if header == "" {
			return fmt.Errorf("%w: field %q is not mapped", ErrMappingIncomplete, field)
		}
		if !present[header] {
			return fmt.Errorf("%w: column %q for field %q is not in the feed", ErrMappingIncomplete, header, field)
		}
	}

	return nil
}

// Правила угадывания колонок. Для каждого поля правила перебираются строго
// по порядку: сначала точное совпадение с каноническим именем, затем
// подстрочные совпадения с известными синонимами. Сравнение без учета регистра.
type guessRule struct {
	exact bool
	terms []string // при exact ровно один терм; иначе заголовок должен содержать все термы
}

func exact(term string) guessRule {
	return guessRule{exact: true, terms: []string{term}}
}

func contains(terms ...string) guessRule {
	return guessRule{terms: terms}
}

var guessRules = map[Field][]guessRule{
	FieldSKU: {
		exact("sku"),
		contains("item", "sku"),
		contains("product", "sku"),
		contains("sku"),
	},
	FieldCost: {
		exact("cost"),
		contains("cost"),
		contains("wholesale"),
		contains("dealer"),
		contains("net"),
	},
	FieldName: {
		exact("name"),
		contains("product", "name"),
		contains("title"),
	},
	FieldBrand: {
		exact("brand"),
		contains("brand"),
		contains("manufacturer"),
	},
	FieldUPC: {
		exact("upc"),
		contains("upc"),
		contains("barcode"),
		contains("ean"),
		contains("gtin"),
	},
	FieldLength: {
		exact("length"),
		contains("length"),
	},
	FieldWidth: {
		exact("width"),
		contains("width"),
	},
	FieldHeight: {
		exact("height"),
		contains("height"),
	},
	FieldWeight: {
		exact("weight"),
		contains("weight"),
		contains("lbs"),
	},
	FieldMSRP: {
		exact("msrp"),
		contains("msrp"),
		contains("list", "price"),
		contains("retail"),
	},
}

// GuessHeader возвращает имя заголовка, наиболее похожего на поле field,
// или пустую строку, если ни одно правило не сработало. Результат носит
// рекомендательный характер: пользователь может переопределить любую догадку.
func GuessHeader(headers []string, field Field) string {
	rules, ok := guessRules[field]
	if !ok {
		return ""
	}

	for _, rule := range rules {
		for _, header := range headers {
			if rule.matches(strings.ToLower(strings.TrimSpace(header))) {
				return header
			}
		}
	}

	return ""
}

// GuessMapping строит маппинг для всех поддерживаемых полей.
// Несопоставленные поля в результат не включаются.
func GuessMapping(headers []string) ColumnMapping {
	mapping := make(ColumnMapping)
	for _, field := range Fields {
		if header := GuessHeader(headers, field); header != "" {
			mapping[field] = header
		}
	}
	return mapping
}

func (r guessRule) matches(header string) bool {
	if r.exact {
		return header == r.terms[0]
	}
	for _, term := range r.terms {
		if !strings.Contains(header, term) {
			return false
		}
	}
	return true
}
