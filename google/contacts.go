// ABOUTME: Google People API contact search and full connection listing
// ABOUTME: Converts Person records, preferring primary email and phone values
package google

import (
	"context"

	"google.golang.org/api/people/v1"

	"github.com/harperreed/deskhand/models"
)

const personFields = "names,emailAddresses,phoneNumbers,organizations,biographies"

// FindContacts searches the user's contacts directly on Google.
func (p *Provider) FindContacts(ctx context.Context, query string) ([]models.Contact, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("findContacts", err)
	}

	resp, err := s.people.People.SearchContacts().
		Context(ctx).
		Query(query).
		ReadMask(personFields).
		PageSize(10).
		Do()
	if err != nil {
		return nil, p.fail("findContacts", err)
	}

	var out []models.Contact
	for _, result := range resp.Results {
		if result.Person == nil {
			continue
		}
		out = append(out, convertPerson(result.Person))
	}
	return out, nil
}

// ListAllContacts pages through every connection.
func (p *Provider) ListAllContacts(ctx context.Context) ([]models.Contact, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("listAllContacts", err)
	}

	var out []models.Contact
	pageToken := ""
	for {
		call := s.people.People.Connections.List("people/me").
			Context(ctx).
			PageSize(1000).
			PersonFields(personFields)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, p.fail("listAllContacts", err)
		}

		for _, person := range resp.Connections {
			c := convertPerson(person)
			// Skip entries with nothing to show
			if c.Name == "" && c.Email == "" {
				continue
			}
			out = append(out, c)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

// convertPerson converts a People API Person to a Contact.
func convertPerson(person *people.Person) models.Contact {
	c := models.Contact{ID: person.ResourceName}

	if len(person.Names) > 0 {
		c.Name = person.Names[0].DisplayName
	}

	// Prefer primary email, otherwise first available
	for _, email := range person.EmailAddresses {
		if email.Value == "" {
			continue
		}
		if c.Email == "" {
			c.Email = email.Value
		}
		if email.Metadata != nil && email.Metadata.Primary {
			c.Email = email.Value
			break
		}
	}

	// Prefer primary phone, otherwise first available
	for _, phone := range person.PhoneNumbers {
		if phone.Value == "" {
			continue
		}
		if c.Phone == "" {
			c.Phone = phone.Value
		}
		if phone.Metadata != nil && phone.Metadata.Primary {
			c.Phone = phone.Value
			break
		}
	}

	if len(person.Organizations) > 0 {
		c.Company = person.Organizations[0].Name
		c.JobTitle = person.Organizations[0].Title
	}

	if len(person.Biographies) > 0 {
		c.Notes = person.Biographies[0].Value
	}

	return c
}
