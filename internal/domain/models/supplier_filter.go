package models

// SupplierFilter представляет структурированную модель для фильтрации поставщиков
type SupplierFilter struct {
	// Основные поля фильтрации
	ID       string `json:"id,omitempty"`
	Code     string `json:"code,omitempty"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`

	// Только поставщики с загруженным фидом
	HasFeed *bool `json:"has_feed,omitempty"`

	// Фильтрация по времени
	CreatedAfter  int64 `json:"created_after,omitempty"`  // Unix timestamp
	CreatedBefore int64 `json:"created_before,omitempty"` // Unix timestamp

	// Полнотекстовый поиск по коду, имени и заметкам
	SearchQuery string `json:"search_query,omitempty"`
}

// ToMap преобразует SupplierFilter в map для использования в запросах
func (f *SupplierFilter) ToMap() map[string]interface{} {
	result := make(map[string]interface{})

	if f.ID != "" {
		result["id"] = f.ID
	}

	if f.Code != "" {
		result["code"] = f.Code
	}

	if f.Name != "" {
		result["name"] = f.Name
	}

	if f.Location != "" {
		result["location"] = f.Location
	}

	if f.HasFeed != nil {
		result["has_feed"] = *f.HasFeed
	}

	if f.CreatedAfter > 0 {
		result["created_after"] = f.CreatedAfter
	}

	if f.CreatedBefore > 0 {
		result["created_before"] = f.CreatedBefore
	}

	if f.SearchQuery != "" {
		result["search_query"] = f.SearchQuery
	}

	return result
}
