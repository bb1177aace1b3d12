package ticket

// Summary is a single entry from the allTickets listing. Only the
// ticket number matters for de-duplication; the rest is carried for
// logging.
type Summary struct {
	TicketNo   string  `json:"ticketNo"`
	DateHappen *string `json:"dateHappen,omitempty"`
	Plate      *string `json:"plate,omitempty"`
	PaidStatus *string `json:"paidStatus,omitempty"`
}

// Detail is the full ticket record from the ticketDetail endpoint.
type Detail struct {
	TicketNo      string  `json:"ticketNo"`
	DateHappen    string  `json:"dateHappen"`
	FineAmount    *string `json:"fineAmount,omitempty"`
	Plate         *string `json:"plate,omitempty"`
	Road          *string `json:"road,omitempty"`
	Accuse1Desc   *string `json:"accuse1Desc,omitempty"`
	PaidStatus    *string `json:"paidStatus,omitempty"`
	LimitSpeed    *string `json:"limitSpeed,omitempty"`
	Speed         *string `json:"speed,omitempty"`
	Lane          *string `json:"lane,omitempty"`
	OrderDivision *string `json:"orderDivision,omitempty"`
	CreateDate    *string `json:"createDate,omitempty"`
	OrderName     *string `json:"orderName,omitempty"`
}

// Info is the flattened record built per processed ticket, used for
// notifications and the archive.
type Info struct {
	TicketNo      string  `json:"ticketNo"`
	DateHappen    string  `json:"dateHappen"`
	FineAmount    *string `json:"fineAmount,omitempty"`
	LicensePlate  *string `json:"licensePlate,omitempty"`
	Location      *string `json:"location,omitempty"`
	Offense       *string `json:"offense,omitempty"`
	PaidStatus    *string `json:"paidStatus,omitempty"`
	LimitSpeed    *string `json:"limitSpeed,omitempty"`
	Speed         *string `json:"speed,omitempty"`
	Lane          *string `json:"lane,omitempty"`
	OrderDivision *string `json:"orderDivision,omitempty"`
	CreateDate    *string `json:"createDate,omitempty"`
	OrderName     *string `json:"orderName,omitempty"`
}

// InfoFromDetail flattens the remote detail record.
func InfoFromDetail(ticketNo string, d Detail) Info {
	return Info{
		TicketNo:      ticketNo,
		DateHappen:    d.DateHappen,
		FineAmount:    d.FineAmount,
		LicensePlate:  d.Plate,
		Location:      d.Road,
		Offense:       d.Accuse1Desc,
		PaidStatus:    d.PaidStatus,
		LimitSpeed:    d.LimitSpeed,
		Speed:         d.Speed,
		Lane:          d.Lane,
		OrderDivision: d.OrderDivision,
		CreateDate:    d.CreateDate,
		OrderName:     d.OrderName,
	}
}

// MaxEvidenceImages is the number of image slots the imageevidence
// endpoint can return.
const MaxEvidenceImages = 9

// Evidence holds up to nine base64-encoded evidence images.
type Evidence struct {
	UpImage1 string `json:"upImage1,omitempty"`
	UpImage2 string `json:"upImage2,omitempty"`
	UpImage3 string `json:"upImage3,omitempty"`
	UpImage4 string `json:"upImage4,omitempty"`
	UpImage5 string `json:"upImage5,omitempty"`
	UpImage6 string `json:"upImage6,omitempty"`
	UpImage7 string `json:"upImage7,omitempty"`
	UpImage8 string `json:"upImage8,omitempty"`
	UpImage9 string `json:"upImage9,omitempty"`
}

// Image returns the base64 payload at the given 1-based slot, or empty
// if the slot is out of range or unset.
func (e Evidence) Image(index int) string {
	switch index {
	case 1:
		return e.UpImage1
	case 2:
		return e.UpImage2
	case 3:
		return e.UpImage3
	case 4:
		return e.UpImage4
	case 5:
		return e.UpImage5
	case 6:
		return e.UpImage6
	case 7:
		return e.UpImage7
	case 8:
		return e.UpImage8
	case 9:
		return e.UpImage9
	default:
		return ""
	}
}
