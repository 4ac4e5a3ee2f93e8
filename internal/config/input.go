package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput marks a missing or malformed run descriptor.
var ErrInvalidInput = errors.New("invalid input descriptor")

// Input is the run descriptor read from challenge1b_input.json.
type Input struct {
	Challenge   *ChallengeInfo `json:"challenge_info,omitempty"`
	Persona     Persona        `json:"persona" validate:"required"`
	JobToBeDone JobToBeDone    `json:"job_to_be_done" validate:"required"`
	Documents   []DocumentRef  `json:"documents" validate:"required,min=1,dive"`
}

// ChallengeInfo is carried through untouched.
type ChallengeInfo struct {
	ChallengeID  string `json:"challenge_id,omitempty"`
	TestCaseName string `json:"test_case_name,omitempty"`
	Description  string `json:"description,omitempty"`
}

type Persona struct {
	Role string `json:"role" validate:"required"`
}

type JobToBeDone struct {
	Task string `json:"task" validate:"required"`
}

type DocumentRef struct {
	Filename string `json:"filename" validate:"required"`
	Title    string `json:"title,omitempty"`
}

// Filenames returns the document filenames in input order.
func (in *Input) Filenames() []string {
	out := make([]string, len(in.Documents))
	for i, d := range in.Documents {
		out[i] = d.Filename
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields. Whitespace-only strings count as empty.
func (in *Input) Validate() error {
	in.Persona.Role = strings.TrimSpace(in.Persona.Role)
	in.JobToBeDone.Task = strings.TrimSpace(in.JobToBeDone.Task)
	for i := range in.Documents {
		in.Documents[i].Filename = strings.TrimSpace(in.Documents[i].Filename)
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// DecodeInput reads and validates a descriptor.
func DecodeInput(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// LoadInput reads the descriptor at path.
func LoadInput(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	defer f.Close()
	return DecodeInput(f)
}
