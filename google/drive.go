// ABOUTME: Google Drive file search and listing plus Google Docs creation
// ABOUTME: New documents are created empty and filled with one InsertText request
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/harperreed/deskhand/models"
)

const (
	fileFields    = "nextPageToken, files(id, name, mimeType, webViewLink, modifiedTime, owners(displayName, emailAddress))"
	docMimeType   = "application/vnd.google-apps.document"
	docLinkPrefix = "https://docs.google.com/document/d/"
)

// FindDocuments searches file names on Drive.
func (p *Provider) FindDocuments(ctx context.Context, query string) ([]models.Document, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("findDocuments", err)
	}

	q := "trashed = false"
	if strings.TrimSpace(query) != "" {
		q = fmt.Sprintf("name contains '%s' and trashed = false", escapeDriveQuery(query))
	}

	resp, err := s.drive.Files.List().
		Context(ctx).
		Q(q).
		OrderBy("modifiedTime desc").
		PageSize(10).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, p.fail("findDocuments", err)
	}

	out := make([]models.Document, 0, len(resp.Files))
	for _, f := range resp.Files {
		out = append(out, toDocument(f))
	}
	return out, nil
}

// CreateDoc creates a Google Doc, inserting content when given.
func (p *Provider) CreateDoc(ctx context.Context, details models.DocDetails) (*models.Document, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("createDoc", err)
	}

	created, err := s.docs.Documents.Create(&docs.Document{Title: details.Title}).Context(ctx).Do()
	if err != nil {
		return nil, p.fail("createDoc", err)
	}

	if details.Content != "" {
		req := &docs.BatchUpdateDocumentRequest{
			Requests: []*docs.Request{{
				InsertText: &docs.InsertTextRequest{
					Text:     details.Content,
					Location: &docs.Location{Index: 1},
				},
			}},
		}
		if _, err := s.docs.Documents.BatchUpdate(created.DocumentId, req).Context(ctx).Do(); err != nil {
			return nil, p.fail("createDoc", err)
		}
	}

	now := p.now()
	return &models.Document{
		ID:           created.DocumentId,
		Name:         created.Title,
		MimeType:     docMimeType,
		WebViewLink:  docLinkPrefix + created.DocumentId + "/edit",
		ModifiedTime: &now,
	}, nil
}

// ListAllFiles pages through every non-trashed file.
func (p *Provider) ListAllFiles(ctx context.Context) ([]models.Document, error) {
	s, err := p.services(ctx)
	if err != nil {
		return nil, p.fail("listAllFiles", err)
	}

	var out []models.Document
	pageToken := ""
	for {
		call := s.drive.Files.List().
			Context(ctx).
			Q("trashed = false").
			PageSize(1000).
			Fields(googleapi.Field(fileFields))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, p.fail("listAllFiles", err)
		}
		for _, f := range resp.Files {
			out = append(out, toDocument(f))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func toDocument(f *drive.File) models.Document {
	d := models.Document{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		WebViewLink: f.WebViewLink,
	}
	if len(f.Owners) > 0 {
		d.Owner = f.Owners[0].EmailAddress
		if d.Owner == "" {
			d.Owner = f.Owners[0].DisplayName
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			d.ModifiedTime = &t
		}
	}
	return d
}
