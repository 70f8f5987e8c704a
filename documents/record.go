package documents

import "time"

// Record is one truck shipment with its uploaded paperwork.
type Record struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"userId"`
	OwnerEmail   string    `json:"userEmail"`
	TruckNumber  string    `json:"truckNumber"`
	LoadedDate   string    `json:"loadedDate"` // YYYY-MM-DD as entered on the form
	AT20Depot    string    `json:"at20Depot"`
	Product      string    `json:"product"`
	Destination  string    `json:"destination"`
	GatePassURL  string    `json:"gatePassUrl"`
	GatePassName string    `json:"gatePassName"`
	TR812URL     string    `json:"tr812Url"`
	TR812Name    string    `json:"tr812Name"`
	EPermitURL   *string   `json:"ePermitUrl,omitempty"`
	EPermitName  *string   `json:"ePermitName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// File is an uploaded form attachment held in memory.
type File struct {
	Name string
	Size int64
	Data []byte
}

// Form is the new document submission. GatePass and TR812 are required, EPermit is optional.
type Form struct {
	TruckNumber string
	LoadedDate  string
	AT20Depot   string
	Product     string
	Destination string
	GatePass    *File
	TR812       *File
	EPermit     *File
}

// Owner identifies who a record belongs to.
type Owner struct {
	ID    string
	Email string
}

const loadedDateLayout = "2006-01-02"

// parseDate accepts the form's date input and full ISO timestamps.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(loadedDateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
