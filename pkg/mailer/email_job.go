package mailer

import (
	"github.com/oksasatya/scopeguard/internal/domain/entity"
	mailtpl "github.com/oksasatya/scopeguard/pkg/mailer/templates"
)

// EmailJob is a rendered-on-demand email: a recipient, a template name and
// the data to render it with.
type EmailJob struct {
	To       string
	Template string
	Data     mailtpl.RegistrationData
}

// JobForRegistration picks the recipient for a registration event. With an
// admin address configured the admin gets a notice; otherwise the new user
// gets a welcome.
func JobForRegistration(evt entity.UserRegisteredEvent, appName, adminEmail string) EmailJob {
	job := EmailJob{
		To:       evt.Email,
		Template: mailtpl.UserWelcome,
		Data: mailtpl.RegistrationData{
			AppName:      appName,
			FullName:     evt.FullName,
			Email:        evt.Email,
			Scopes:       evt.Scopes,
			RegisteredAt: evt.OccurredAt,

			PendingActivation: !evt.IsActive,
		},
	}
	if adminEmail != "" {
		job.To = adminEmail
		job.Template = mailtpl.AdminNewUser
	}
	return job
}

// Render expands the job's templates.
func (j EmailJob) Render() (subject, text, html string, err error) {
	return mailtpl.Render(j.Template, j.Data)
}
