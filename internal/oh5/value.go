package oh5

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// Value is a sealed interface representing attribute scalars.
// Only Null, String, Int, Double, Bool, Date, Time and DateTime implement it.
type Value interface {
	// Type returns the value type tag.
	Type() Type
	// String renders the value in its display form.
	String() string

	oh5Value() // Sealed - only these types implement it
}

// Type is the value type of an attribute.
type Type int

const (
	TypeNull Type = iota
	TypeString
	TypeInt
	TypeDouble
	TypeBool
	TypeDate
	TypeTime
	TypeDateTime
)

// String returns the canonical type name.
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeString:
		return "string"
	case TypeInt:
		return "int64"
	case TypeDouble:
		return "double"
	case TypeBool:
		return "bool"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeDateTime:
		return "datetime"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseType parses a type name. Unknown names are a CodeValue error.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "null":
		return TypeNull, nil
	case "string":
		return TypeString, nil
	case "int64", "int", "long":
		return TypeInt, nil
	case "double", "real", "float":
		return TypeDouble, nil
	case "bool":
		return TypeBool, nil
	case "date":
		return TypeDate, nil
	case "time":
		return TypeTime, nil
	case "datetime":
		return TypeDateTime, nil
	default:
		return TypeNull, errs.Value("unknown value type %q", name)
	}
}

// Null is the absent value.
type Null struct{}

func (Null) oh5Value()      {}
func (Null) Type() Type     { return TypeNull }
func (Null) String() string { return "null" }

// String is a string value.
type String string

func (String) oh5Value()        {}
func (String) Type() Type       { return TypeString }
func (s String) String() string { return string(s) }

// Int is a 64-bit integer value.
type Int int64

func (Int) oh5Value()        {}
func (Int) Type() Type       { return TypeInt }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Double is a floating point value.
type Double float64

func (Double) oh5Value()        {}
func (Double) Type() Type       { return TypeDouble }
func (d Double) String() string { return strconv.FormatFloat(float64(d), 'g', -1, 64) }

// Bool is a boolean value.
type Bool bool

func (Bool) oh5Value()        {}
func (Bool) Type() Type       { return TypeBool }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Date is a calendar date without zone.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (Date) oh5Value()  {}
func (Date) Type() Type { return TypeDate }

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ODIM renders the date the way ODIM_H5 stores it (YYYYMMDD).
func (d Date) ODIM() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// Time is a time of day without zone.
type Time struct {
	Hour   int
	Minute int
	Second int
}

func (Time) oh5Value()  {}
func (Time) Type() Type { return TypeTime }

// String renders the time as HH:MM:SS.
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ODIM renders the time the way ODIM_H5 stores it (HHMMSS).
func (t Time) ODIM() string {
	return fmt.Sprintf("%02d%02d%02d", t.Hour, t.Minute, t.Second)
}

// DateTime combines a Date and a Time.
type DateTime struct {
	Date Date
	Time Time
}

func (DateTime) oh5Value()  {}
func (DateTime) Type() Type { return TypeDateTime }

// String renders the value as "YYYY-MM-DD HH:MM:SS".
func (dt DateTime) String() string {
	return dt.Date.String() + " " + dt.Time.String()
}

func validDate(d Date) bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
	return t.Day() == d.Day
}

func validTime(t Time) bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60 && t.Second >= 0 && t.Second < 60
}

// NewDate creates a Date, validating the calendar fields.
func NewDate(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if !validDate(d) {
		return Date{}, errs.Value("invalid date %04d-%02d-%02d", year, month, day)
	}
	return d, nil
}

// NewTime creates a Time, validating the clock fields.
func NewTime(hour, minute, second int) (Time, error) {
	t := Time{Hour: hour, Minute: minute, Second: second}
	if !validTime(t) {
		return Time{}, errs.Value("invalid time %02d:%02d:%02d", hour, minute, second)
	}
	return t, nil
}

// ParseDate accepts YYYYMMDD and YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	layout := "20060102"
	if strings.Contains(s, "-") {
		layout = "2006-01-02"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, errs.Value("invalid date %q", s)
	}
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}, nil
}

// ParseTime accepts HHMMSS and HH:MM:SS.
func ParseTime(s string) (Time, error) {
	layout := "150405"
	if strings.Contains(s, ":") {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Time{}, errs.Value("invalid time %q", s)
	}
	return Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// ParseDateTime accepts YYYYMMDDHHMMSS, "YYYY-MM-DD HH:MM:SS" and
// "YYYY-MM-DDTHH:MM:SS".
func ParseDateTime(s string) (DateTime, error) {
	for _, layout := range []string{"20060102150405", "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return DateTime{}, errs.Value("invalid datetime %q", s)
}

// FromTime converts a time.Time into a DateTime, dropping sub-second
// precision and the zone.
func FromTime(t time.Time) DateTime {
	return DateTime{
		Date: Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()},
		Time: Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()},
	}
}

// GoTime returns dt as a UTC time.Time.
func (dt DateTime) GoTime() time.Time {
	return time.Date(dt.Date.Year, time.Month(dt.Date.Month), dt.Date.Day,
		dt.Time.Hour, dt.Time.Minute, dt.Time.Second, 0, time.UTC)
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Convert converts v to the requested type. Null converts to Null for every
// target type. Unconvertible values are a CodeTypeMismatch error.
func Convert(v Value, t Type) (Value, error) {
	if IsNull(v) || t == TypeNull {
		return Null{}, nil
	}
	if v.Type() == t {
		return v, nil
	}
	switch t {
	case TypeString:
		switch val := v.(type) {
		case Date:
			return String(val.ODIM()), nil
		case Time:
			return String(val.ODIM()), nil
		}
		return String(v.String()), nil
	case TypeInt:
		switch val := v.(type) {
		case Double:
			if float64(val) == math.Trunc(float64(val)) {
				return Int(int64(val)), nil
			}
		case Bool:
			if val {
				return Int(1), nil
			}
			return Int(0), nil
		case String:
			if n, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64); err == nil {
				return Int(n), nil
			}
		}
	case TypeDouble:
		switch val := v.(type) {
		case Int:
			return Double(float64(val)), nil
		case String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64); err == nil {
				return Double(f), nil
			}
		}
	case TypeBool:
		switch val := v.(type) {
		case Int:
			return Bool(val != 0), nil
		case String:
			if b, err := strconv.ParseBool(strings.TrimSpace(string(val))); err == nil {
				return Bool(b), nil
			}
		}
	case TypeDate:
		switch val := v.(type) {
		case DateTime:
			return val.Date, nil
		case String:
			if d, err := ParseDate(string(val)); err == nil {
				return d, nil
			}
		}
	case TypeTime:
		switch val := v.(type) {
		case DateTime:
			return val.Time, nil
		case String:
			if tm, err := ParseTime(string(val)); err == nil {
				return tm, nil
			}
		}
	case TypeDateTime:
		switch val := v.(type) {
		case Date:
			return DateTime{Date: val}, nil
		case String:
			if dt, err := ParseDateTime(string(val)); err == nil {
				return dt, nil
			}
		}
	}
	return nil, errs.TypeMismatch("cannot convert %s %q to %s", v.Type(), v.String(), t)
}

// Compare orders two non-null values. Int and Double compare numerically,
// a Date compares with a DateTime as midnight of that day. Any other pair
// of differing types is a CodeTypeMismatch error.
func Compare(a, b Value) (int, error) {
	if IsNull(a) || IsNull(b) {
		return 0, errs.TypeMismatch("cannot order null values")
	}
	if af, aok := numeric(a); aok {
		if bf, bok := numeric(b); bok {
			return cmpOrdered(af, bf), nil
		}
	}
	switch av := a.(type) {
	case String:
		if bv, ok := b.(String); ok {
			return strings.Compare(string(av), string(bv)), nil
		}
	case Bool:
		if bv, ok := b.(Bool); ok {
			return cmpOrdered(boolRank(bool(av)), boolRank(bool(bv))), nil
		}
	case Time:
		if bv, ok := b.(Time); ok {
			return compareTime(av, bv), nil
		}
	case Date, DateTime:
		if ad, ok := asDateTime(a); ok {
			if bd, ok := asDateTime(b); ok {
				return compareDateTime(ad, bd), nil
			}
		}
	}
	return 0, errs.TypeMismatch("cannot compare %s with %s", a.Type(), b.Type())
}

// Equal reports whether a and b are equal. Values of incomparable types are
// never equal; Null equals only Null.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

func numeric(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Double:
		return float64(val), true
	default:
		return 0, false
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func asDateTime(v Value) (DateTime, bool) {
	switch val := v.(type) {
	case Date:
		return DateTime{Date: val}, true
	case DateTime:
		return val, true
	default:
		return DateTime{}, false
	}
}

func compareTime(a, b Time) int {
	if c := cmpOrdered(a.Hour, b.Hour); c != 0 {
		return c
	}
	if c := cmpOrdered(a.Minute, b.Minute); c != 0 {
		return c
	}
	return cmpOrdered(a.Second, b.Second)
}

func compareDateTime(a, b DateTime) int {
	for _, pair := range [][2]int{
		{a.Date.Year, b.Date.Year},
		{a.Date.Month, b.Date.Month},
		{a.Date.Day, b.Date.Day},
	} {
		if c := cmpOrdered(pair[0], pair[1]); c != 0 {
			return c
		}
	}
	return compareTime(a.Time, b.Time)
}

func cmpOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FromNative converts a database/sql driver value into a Value.
// []byte is treated as a string; time.Time becomes a DateTime.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case []byte:
		return String(string(val)), nil
	case int64:
		return Int(val), nil
	case int:
		return Int(int64(val)), nil
	case int32:
		return Int(int64(val)), nil
	case float64:
		return Double(val), nil
	case float32:
		return Double(float64(val)), nil
	case bool:
		return Bool(val), nil
	case time.Time:
		return FromTime(val), nil
	default:
		return nil, errs.TypeMismatch("unsupported native value %T", v)
	}
}

// Native converts a Value into a database/sql parameter.
// Dates and times are passed in their ISO text forms.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Double:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return v.String()
	}
}
