package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type ReportGranularity string

const (
	ReportGranularityDaily   ReportGranularity = "daily"
	ReportGranularityWeekly  ReportGranularity = "weekly"
	ReportGranularityMonthly ReportGranularity = "monthly"
)

// convert enum to send response
func (t ReportGranularity) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *ReportGranularity) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("report granularity must be string")
	}
	switch str {
	case "daily":
		*t = ReportGranularityDaily
	case "weekly":
		*t = ReportGranularityWeekly
	case "monthly":
		*t = ReportGranularityMonthly
	default:
		return errors.New("invalid report granularity")
	}
	return nil
}

// ParseReportGranularity validates a query-string granularity value.
// Blank defaults to daily.
func ParseReportGranularity(str string) (ReportGranularity, error) {
	switch str {
	case "", "daily":
		return ReportGranularityDaily, nil
	case "weekly":
		return ReportGranularityWeekly, nil
	case "monthly":
		return ReportGranularityMonthly, nil
	default:
		return "", errors.New("invalid report granularity")
	}
}

type SettlementScheme string

const (
	SettlementSchemeSameDay      SettlementScheme = "SameDay"
	SettlementSchemeFixedDelay   SettlementScheme = "FixedDelay"
	SettlementSchemeTwiceMonthly SettlementScheme = "TwiceMonthly"
)

func (t SettlementScheme) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *SettlementScheme) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("settlement scheme must be string")
	}

	settlementSchemes := map[string]SettlementScheme{
		"SameDay":      SettlementSchemeSameDay,
		"FixedDelay":   SettlementSchemeFixedDelay,
		"TwiceMonthly": SettlementSchemeTwiceMonthly,
	}

	var ok bool
	*t, ok = settlementSchemes[str]
	if !ok {
		return errors.New("invalid settlement scheme")
	}
	return nil
}

type InvoiceStatus string

const (
	InvoiceStatusDraft       InvoiceStatus = "Draft"
	InvoiceStatusConfirmed   InvoiceStatus = "Confirmed"
	InvoiceStatusVoid        InvoiceStatus = "Void"
	InvoiceStatusPartialPaid InvoiceStatus = "Partial Paid"
	InvoiceStatusPaid        InvoiceStatus = "Paid"
)

func (s InvoiceStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(s))), nil
}

func (s *InvoiceStatus) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("invoice status must be string")
	}

	invoiceStatus := map[string]InvoiceStatus{
		"Draft":        InvoiceStatusDraft,
		"Confirmed":    InvoiceStatusConfirmed,
		"Void":         InvoiceStatusVoid,
		"Partial Paid": InvoiceStatusPartialPaid,
		"Paid":         InvoiceStatusPaid,
	}

	var ok bool
	*s, ok = invoiceStatus[str]
	if !ok {
		return errors.New("invalid invoice status")
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodCheque       PaymentMethod = "Cheque"
	PaymentMethodCreditCard   PaymentMethod = "CreditCard"
	PaymentMethodOther        PaymentMethod = "Other"
)

func (t PaymentMethod) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *PaymentMethod) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("payment method must be string")
	}

	paymentMethods := map[string]PaymentMethod{
		"Cash":         PaymentMethodCash,
		"BankTransfer": PaymentMethodBankTransfer,
		"Cheque":       PaymentMethodCheque,
		"CreditCard":   PaymentMethodCreditCard,
		"Other":        PaymentMethodOther,
	}

	var ok bool
	*t, ok = paymentMethods[str]
	if !ok {
		return errors.New("invalid payment method")
	}
	return nil
}

type PaymentTerms string

const (
	PaymentTermsDueOnReceipt      PaymentTerms = "DueOnReceipt"
	PaymentTermsNet15             PaymentTerms = "Net15"
	PaymentTermsNet30             PaymentTerms = "Net30"
	PaymentTermsNet45             PaymentTerms = "Net45"
	PaymentTermsNet60             PaymentTerms = "Net60"
	PaymentTermsDueEndOfMonth     PaymentTerms = "DueEndOfMonth"
	PaymentTermsDueEndOfNextMonth PaymentTerms = "DueEndOfNextMonth"
	PaymentTermsCustom            PaymentTerms = "Custom"
)

func (t PaymentTerms) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

func (t *PaymentTerms) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("payment terms must be string")
	}

	paymentTerms := map[string]PaymentTerms{
		"DueOnReceipt":      PaymentTermsDueOnReceipt,
		"Net15":             PaymentTermsNet15,
		"Net30":             PaymentTermsNet30,
		"Net45":             PaymentTermsNet45,
		"Net60":             PaymentTermsNet60,
		"DueEndOfMonth":     PaymentTermsDueEndOfMonth,
		"DueEndOfNextMonth": PaymentTermsDueEndOfNextMonth,
		"Custom":            PaymentTermsCustom,
	}

	var ok bool
	*t, ok = paymentTerms[str]
	if !ok {
		return errors.New("invalid payment terms")
	}
	return nil
}

type MyDateString time.Time

func (t MyDateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02T15:04:05"))), nil
}

// Parse the string into time.Time object
func (t *MyDateString) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("MyDateString must be string")
	}

	// Parse the date string into a time.Time object
	localTime, err := time.Parse("2006-01-02T15:04:05", str)
	if err != nil {
		// date-only inputs are common from report filters
		localTime, err = time.Parse("2006-01-02", str)
		if err != nil {
			return errors.New("error parsing datetime")
		}
	}
	*t = MyDateString(localTime)

	return nil
}

func (t *MyDateString) StartOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Jerusalem"
	}

	// Load the location for the given timezone
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	// Convert the start of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)

	// Convert the time to UTC
	utcTime := localTimeInZone.In(time.UTC)
	*t = MyDateString(utcTime)

	return nil
}

func (t *MyDateString) EndOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Jerusalem"
	}

	// Load the location for the given timezone
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	// Convert the end of the day local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999, // Max nanoseconds
		location,
	)

	// Convert the time to UTC
	utcTime := localTimeInZone.In(time.UTC)
	*t = MyDateString(utcTime)

	return nil
}

func (t *MyDateString) UTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Jerusalem"
	}

	// Load the location for the given timezone
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	// Convert the local time to the specified timezone
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		localTime.Hour(), localTime.Minute(), localTime.Second(), localTime.Nanosecond(),
		location,
	)

	// Convert the time to UTC
	utcTime := localTimeInZone.In(time.UTC)
	*t = MyDateString(utcTime)

	return nil
}

// Value implements the driver.Valuer interface
func (t MyDateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements the sql.Scanner interface
func (t *MyDateString) Scan(value interface{}) error {
	if value == nil {
		*t = MyDateString(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*t = MyDateString(v)
	default:
		return fmt.Errorf("cannot convert %T to MyDateString", value)
	}
	return nil
}

func (t *MyDateString) SetDefaultNowIfNil() *MyDateString {
	if t == nil {
		now := MyDateString(time.Now())
		return &now
	}
	return t
}
