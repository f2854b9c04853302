package kinetic

import (
	"encoding/json"
	"math/rand/v2"
	"strconv"
)

// Row is one tracked object. Every field is sent as a decimal string.
type Row struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	X    string `json:"x"`
	Y    string `json:"y"`
	Z    string `json:"z"`
	A    string `json:"a"`
	D    string `json:"d"`
	VX   string `json:"vx"`
	VY   string `json:"vy"`
}

// Frame is the broadcast envelope
type Frame struct {
	Data []Row `json:"data"`
}

// Row value ranges
const (
	MinID    = 2500
	MaxID    = 2599
	MinType  = 1
	MaxType  = 3
	MinRows  = 2
	MaxRows  = 5
	decimals = 2
)

type span struct{ lo, hi float64 }

var (
	spanX  = span{-5, 5}
	spanY  = span{0, 100}
	spanZ  = span{-2.5, 2.5}
	spanA  = span{-5, 5}
	spanD  = span{0, 50}
	spanVX = span{-1, 1}
	spanVY = span{-1, 1}
)

// FallbackPayload is sent in place of an empty or unencodable frame
const FallbackPayload = `{"data":[` +
	`{"id":"2522","type":"1","x":"-1.09","y":"12.83","z":"0.00","a":"-4.85","d":"12.88","vx":"0.00","vy":"0.26"},` +
	`{"id":"2523","type":"1","x":"-1.28","y":"48.76","z":"0.00","a":"-1.50","d":"48.78","vx":"0.00","vy":"-1.17"}` +
	`]}`

func decimal(rng *rand.Rand, s span) string {
	v := s.lo + rng.Float64()*(s.hi-s.lo)
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func newRow(rng *rand.Rand) Row {
	return Row{
		ID:   strconv.Itoa(MinID + rng.IntN(MaxID-MinID+1)),
		Type: strconv.Itoa(MinType + rng.IntN(MaxType-MinType+1)),
		X:    decimal(rng, spanX),
		Y:    decimal(rng, spanY),
		Z:    decimal(rng, spanZ),
		A:    decimal(rng, spanA),
		D:    decimal(rng, spanD),
		VX:   decimal(rng, spanVX),
		VY:   decimal(rng, spanVY),
	}
}

// NewFrame draws between MinRows and MaxRows rows
func NewFrame(rng *rand.Rand) Frame {
	n := MinRows + rng.IntN(MaxRows-MinRows+1)
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = newRow(rng)
	}
	return Frame{Data: rows}
}

// Encode renders the frame, falling back to FallbackPayload on failure
func (f Frame) Encode() []byte {
	data, err := json.Marshal(f)
	if err != nil || len(f.Data) == 0 {
		return []byte(FallbackPayload)
	}
	return data
}
