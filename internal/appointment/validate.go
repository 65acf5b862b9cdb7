package appointment

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

var (
	nicOldPattern = regexp.MustCompile(`^[0-9]{9}[VvXx]$`)
	nicNewPattern = regexp.MustCompile(`^[0-9]{12}$`)
	phonePattern  = regexp.MustCompile(`^[0-9]{10}$`)
)

const (
	minNameLen = 2
	maxNameLen = 100
)

// CreateInput is the payload accepted when booking an appointment. Status is
// deliberately absent: new appointments always start SCHEDULED.
type CreateInput struct {
	DoctorID        string `json:"doctorId" validate:"required"`
	AppointmentDate string `json:"appointmentDate" validate:"required,apptdate"`
	AppointmentTime string `json:"appointmentTime,omitempty" validate:"omitempty,datetime=15:04"`
	Duration        int    `json:"duration,omitempty" validate:"omitempty,min=1,max=480"`
	ChannelNo       int    `json:"channelNo,omitempty" validate:"omitempty,min=1"`

	PatientName    string `json:"patientName" validate:"required,personname"`
	PatientNIC     string `json:"patientNIC" validate:"required,nic"`
	PatientPhone   string `json:"patientPhone" validate:"required,phone"`
	PatientEmail   string `json:"patientEmail,omitempty" validate:"omitempty,email"`
	PatientAge     *int   `json:"patientAge,omitempty" validate:"omitempty,min=0,max=150"`
	PatientGender  string `json:"patientGender,omitempty" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	PatientAddress string `json:"patientAddress,omitempty" validate:"omitempty,max=500"`
}

// UpdateInput is a partial edit. Nil fields are left untouched; a present field
// must satisfy the same rule it has at creation.
type UpdateInput struct {
	DoctorID        *string `json:"doctorId,omitempty" validate:"omitempty,min=1"`
	AppointmentDate *string `json:"appointmentDate,omitempty" validate:"omitempty,apptdate"`
	AppointmentTime *string `json:"appointmentTime,omitempty" validate:"omitempty,datetime=15:04"`
	Duration        *int    `json:"duration,omitempty" validate:"omitempty,min=1,max=480"`
	ChannelNo       *int    `json:"channelNo,omitempty" validate:"omitempty,min=1"`

	PatientName    *string `json:"patientName,omitempty" validate:"omitempty,personname"`
	PatientNIC     *string `json:"patientNIC,omitempty" validate:"omitempty,nic"`
	PatientPhone   *string `json:"patientPhone,omitempty" validate:"omitempty,phone"`
	PatientEmail   *string `json:"patientEmail,omitempty" validate:"omitempty,email"`
	PatientAge     *int    `json:"patientAge,omitempty" validate:"omitempty,min=0,max=150"`
	PatientGender  *string `json:"patientGender,omitempty" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	PatientAddress *string `json:"patientAddress,omitempty" validate:"omitempty,max=500"`

	Status *string `json:"status,omitempty" validate:"omitempty,oneof=SCHEDULED CONFIRMED IN_PROGRESS COMPLETED CANCELLED NO_SHOW"`
}

// Result reports every violated rule of one validation pass.
type Result struct {
	Valid  bool              `json:"isValid"`
	Errors []string          `json:"errors"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Fields: r.Fields, Messages: r.Errors}
}

type ValidationError struct {
	Fields   map[string]string
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("nic", func(fl validator.FieldLevel) bool {
		return ValidNIC(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return validName(fl.Field().String())
	})
	_ = v.RegisterValidation("apptdate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})

	return v
}

// ValidNIC accepts nine digits followed by V or X (any case), or twelve digits.
func ValidNIC(s string) bool {
	return nicOldPattern.MatchString(s) || nicNewPattern.MatchString(s)
}

func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

func validName(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= minNameLen && n <= maxNameLen
}

// ValidateCreate and ValidateUpdate both check the email trimmed and treat a
// blank one as absent; email is the only optional text field whose emptiness
// means "not given".
func ValidateCreate(in CreateInput) Result {
	in.PatientEmail = strings.TrimSpace(in.PatientEmail)
	return run(in)
}

func ValidateUpdate(in UpdateInput) Result {
	if in.PatientEmail != nil {
		email := strings.TrimSpace(*in.PatientEmail)
		in.PatientEmail = &email
		if email == "" {
			in.PatientEmail = nil
		}
	}
	return run(in)
}

func run(in any) Result {
	err := validate.Struct(in)
	if err == nil {
		return Result{Valid: true, Errors: []string{}}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Valid: false, Errors: []string{err.Error()}}
	}

	res := Result{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		msg := message(fe)
		res.Errors = append(res.Errors, msg)
		res.Fields[fe.Field()] = msg
	}
	return res
}

var fieldLabels = map[string]string{
	"doctorId":        "doctor",
	"appointmentDate": "appointment date",
	"appointmentTime": "appointment time",
	"duration":        "duration",
	"channelNo":       "channel number",
	"patientName":     "patient name",
	"patientNIC":      "patient NIC",
	"patientPhone":    "patient phone",
	"patientEmail":    "patient email",
	"patientAge":      "patient age",
	"patientGender":   "patient gender",
	"patientAddress":  "patient address",
	"status":          "status",
}

func message(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	var blank bool
	switch v := fe.Value().(type) {
	case string:
		blank = strings.TrimSpace(v) == ""
	case *string:
		blank = v == nil || strings.TrimSpace(*v) == ""
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "nic":
		if blank {
			return label + " is required"
		}
		return label + " must be 9 digits followed by V or X, or 12 digits"
	case "phone":
		if blank {
			return label + " is required"
		}
		return label + " must be exactly 10 digits"
	case "personname":
		if blank {
			return label + " is required"
		}
		return label + " must be between 2 and 100 characters"
	case "email":
		return label + " must be a valid email address"
	case "apptdate":
		return label + " must be a date in YYYY-MM-DD format"
	case "datetime":
		return label + " must be in HH:MM format"
	case "oneof":
		return label + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min", "max":
		switch fe.Field() {
		case "patientAge":
			return label + " must be between 0 and 150"
		case "duration":
			return label + " must be between 1 and 480 minutes"
		case "channelNo":
			return label + " must be a positive integer"
		case "doctorId":
			return label + " must not be empty"
		}
		return label + " is out of range"
	}
	return label + " is invalid"
}
