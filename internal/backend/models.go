package backend

// Reservation statuses as the backend spells them.
const (
	StatusBooked    = "BOOKED"
	StatusCanceled  = "CANCELED"
	StatusCompleted = "COMPLETED"
)

// RoleOwner is the only role allowed into the dashboard.
const RoleOwner = "OWNER"

// Service is one bookable offering. AllowedDays is a comma-separated list of
// weekday names; nil means unrestricted.
type Service struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	AllowedDays *string `json:"allowedDays"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
}

type PetRequest struct {
	Name       string `json:"name"`
	Species    string `json:"species"`
	Breed      string `json:"breed"`
	Age        int    `json:"age"`
	OwnerName  string `json:"ownerName"`
	OwnerPhone string `json:"ownerPhone"`
}

type Pet struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Species    string `json:"species"`
	Breed      string `json:"breed"`
	Age        int    `json:"age"`
	OwnerName  string `json:"ownerName"`
	OwnerPhone string `json:"ownerPhone"`
}

// ReservationRequest creates a reservation. ReservationTime is a local
// YYYY-MM-DDTHH:mm string.
type ReservationRequest struct {
	PetID           int64  `json:"petId"`
	ServiceID       int64  `json:"serviceId"`
	ReservationTime string `json:"reservationTime"`
	Notes           string `json:"notes"`
}

// Reservation is the dashboard row the backend serves. Date is YYYY-MM-DD and
// Time is HH:MM once the client has normalized it.
type Reservation struct {
	ID        int64  `json:"id"`
	PetName   string `json:"petName"`
	OwnerName string `json:"ownerName"`
	Phone     string `json:"phone"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Species   string `json:"species"`
	Service   string `json:"service,omitempty"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type cancelRequest struct {
	Phone string `json:"phone"`
}

type errorBody struct {
	Message string `json:"message"`
}
