package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/linkcheck-service/internal/entity"
)

// SubjectRepoImpl provides a concrete implementation for the
// SubjectRepository interface using PostgreSQL.
type SubjectRepoImpl struct {
	db *pgxpool.Pool
}

// NewSubjectRepo creates a new instance of SubjectRepoImpl.
func NewSubjectRepo(db *pgxpool.Pool) *SubjectRepoImpl {
	return &SubjectRepoImpl{db: db}
}

// UpsertBySlug creates or updates a subject keyed by its listing slug and
// returns the subject id. Re-scraping refreshes every descriptive field.
func (r *SubjectRepoImpl) UpsertBySlug(ctx context.Context, s *entity.Subject) (int64, error) {
	query := `
		INSERT INTO subjects (
			slug, profile_url, name, image_url, source_name, source_url, author,
			description_html, description_text, region, country, state, sex,
			date_of_killing, previous_threats, type_of_work, sector, sector_detail,
			more_information, contact_email, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (slug) DO UPDATE SET
			profile_url = EXCLUDED.profile_url,
			name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			source_name = EXCLUDED.source_name,
			source_url = EXCLUDED.source_url,
			author = EXCLUDED.author,
			description_html = EXCLUDED.description_html,
			description_text = EXCLUDED.description_text,
			region = EXCLUDED.region,
			country = EXCLUDED.country,
			state = EXCLUDED.state,
			sex = EXCLUDED.sex,
			date_of_killing = EXCLUDED.date_of_killing,
			previous_threats = EXCLUDED.previous_threats,
			type_of_work = EXCLUDED.type_of_work,
			sector = EXCLUDED.sector,
			sector_detail = EXCLUDED.sector_detail,
			more_information = EXCLUDED.more_information,
			contact_email = EXCLUDED.contact_email
		RETURNING id;
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		s.Slug,
		s.ProfileURL,
		s.Name,
		s.ImageURL,
		s.SourceName,
		s.SourceURL,
		s.Author,
		s.DescriptionHTML,
		s.DescriptionText,
		s.Region,
		s.Country,
		s.State,
		s.Sex,
		s.DateOfKilling,
		s.PreviousThreats,
		s.TypeOfWork,
		s.Sector,
		s.SectorDetail,
		s.MoreInformation,
		s.ContactEmail,
		s.CreatedAt,
	).Scan(&id)
	return id, err
}

// ListAll returns every subject, for export.
func (r *SubjectRepoImpl) ListAll(ctx context.Context) ([]*entity.Subject, error) {
	query := `
		SELECT id, slug, profile_url, COALESCE(name, ''), COALESCE(image_url, ''),
			COALESCE(source_name, ''), COALESCE(source_url, ''), COALESCE(author, ''),
			COALESCE(description_html, ''), COALESCE(description_text, ''),
			COALESCE(region, ''), COALESCE(country, ''), COALESCE(state, ''),
			COALESCE(sex, ''), date_of_killing, COALESCE(previous_threats, FALSE),
			COALESCE(type_of_work, ''), COALESCE(sector, ''), COALESCE(sector_detail, '[]'),
			COALESCE(more_information, ''), COALESCE(contact_email, ''), created_at
		FROM subjects
		ORDER BY id;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []*entity.Subject
	for rows.Next() {
		var s entity.Subject
		if err := rows.Scan(
			&s.ID,
			&s.Slug,
			&s.ProfileURL,
			&s.Name,
			&s.ImageURL,
			&s.SourceName,
			&s.SourceURL,
			&s.Author,
			&s.DescriptionHTML,
			&s.DescriptionText,
			&s.Region,
			&s.Country,
			&s.State,
			&s.Sex,
			&s.DateOfKilling,
			&s.PreviousThreats,
			&s.TypeOfWork,
			&s.Sector,
			&s.SectorDetail,
			&s.MoreInformation,
			&s.ContactEmail,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		subjects = append(subjects, &s)
	}
	return subjects, rows.Err()
}
