package clerk

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mihaimyh/usersync/pkg/usersync"
	"github.com/mihaimyh/usersync/pkg/webhook"
)

const verificationStatusVerified = "verified"

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type phoneNumber struct {
	ID           string `json:"id"`
	PhoneNumber  string `json:"phone_number"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

// userPayload mirrors the identity provider's user object. Nullable fields
// are pointers so a null in the payload is distinguishable from "".
type userPayload struct {
	ID                    string         `json:"id"`
	Username              *string        `json:"username"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PhoneNumbers          []phoneNumber  `json:"phone_numbers"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	PrimaryPhoneNumberID  string         `json:"primary_phone_number_id"`
}

// ExtractUserDetails normalizes a raw identity payload into the canonical
// partial record. Fields that resolve to absent are omitted entirely, never
// stored as null, so an update built from the result cannot clear stored
// values the payload simply did not carry.
func ExtractUserDetails(data []byte) (usersync.Fields, error) {
	var payload userPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", webhook.ErrInvalidPayload, err)
	}

	details := usersync.Fields{}

	if payload.ID != "" {
		details[usersync.FieldID] = payload.ID
	}

	if email := primaryEmail(payload); email != "" {
		details[usersync.FieldEmail] = email
	}

	if phone := primaryPhone(payload); phone != "" {
		details[usersync.FieldPhone] = phone
	}

	if payload.Username != nil {
		details[usersync.FieldUsername] = *payload.Username
	}

	firstName, lastName := "", ""
	if payload.FirstName != nil {
		firstName = *payload.FirstName
		details[usersync.FieldFirstName] = firstName
	}
	if payload.LastName != nil {
		lastName = *payload.LastName
		details[usersync.FieldLastName] = lastName
	}

	details[usersync.FieldFullName] = strings.TrimSpace(firstName + " " + lastName)

	return details, nil
}

// primaryEmail picks the entry matching the declared primary email id,
// falling back to the first entry in the list.
func primaryEmail(payload userPayload) string {
	for _, email := range payload.EmailAddresses {
		if payload.PrimaryEmailAddressID != "" && email.ID == payload.PrimaryEmailAddressID {
			return email.EmailAddress
		}
	}
	if len(payload.EmailAddresses) > 0 {
		return payload.EmailAddresses[0].EmailAddress
	}
	return ""
}

// primaryPhone picks the entry matching the declared primary phone id,
// falling back to the first verified entry.
func primaryPhone(payload userPayload) string {
	if payload.PrimaryPhoneNumberID != "" {
		for _, phone := range payload.PhoneNumbers {
			if phone.ID == payload.PrimaryPhoneNumberID {
				return phone.PhoneNumber
			}
		}
	}
	for _, phone := range payload.PhoneNumbers {
		if phone.Verification.Status == verificationStatusVerified {
			return phone.PhoneNumber
		}
	}
	return ""
}
