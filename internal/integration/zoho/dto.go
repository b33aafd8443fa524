package zoho

// Contact is the relay's read-through view of a Zoho CRM contact
type Contact struct {
	ID        string `json:"id"`
	Email     string `json:"Email"`
	FirstName string `json:"First_Name"`
	LastName  string `json:"Last_Name"`
}

// ContactCreateRequest carries the fields for a new contact.
// Last_Name must be non-empty; Zoho rejects contacts without it.
type ContactCreateRequest struct {
	LastName  string `json:"Last_Name"`
	FirstName string `json:"First_Name,omitempty"`
	Email     string `json:"Email,omitempty"`
}

// Deal is a created Zoho CRM deal
type Deal struct {
	ID     string
	Name   string
	Amount float64
	Stage  string
}

// DealCreateRequest carries the fields for a new deal linked to a contact
type DealCreateRequest struct {
	Name        string
	Amount      float64
	Stage       string
	ContactID   string
	Description string
}

// dealRecord is the wire shape of a deal in Zoho's record API
type dealRecord struct {
	DealName    string         `json:"Deal_Name"`
	Amount      float64        `json:"Amount"`
	Stage       string         `json:"Stage"`
	Description string         `json:"Description,omitempty"`
	ContactName *recordPointer `json:"Contact_Name,omitempty"`
}

// recordPointer references another CRM record by id
type recordPointer struct {
	ID string `json:"id"`
}

// envelope wraps records the way Zoho's v2 record API expects: {"data":[...]}
type envelope[T any] struct {
	Data []T `json:"data"`
}

// mutationResult is one entry of a create/update response
type mutationResult struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		ID string `json:"id"`
	} `json:"details"`
}

// tokenResponse is the Zoho accounts OAuth token exchange response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}
