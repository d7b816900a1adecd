package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/Alijeyrad/hairai_backend/pkg/constants"
)

// ReportReadyEmailData contains the data for the report-ready notification
// sent to the user who opened an analysis session.
type ReportReadyEmailData struct {
	Email              string
	FirstName          string
	PatientName        string
	SessionDate        string
	TotalAnalyzedAreas int
	ReportURL          string
	AppName            string
}

// BuildReportReadyEmail creates the message announcing a generated session report.
func BuildReportReadyEmail(data ReportReadyEmailData) Message {
	appName := data.AppName
	if appName == "" {
		appName = constants.DisplayName
	}

	firstName := data.FirstName
	if firstName == "" {
		firstName = "there"
	}

	patient := data.PatientName
	if strings.TrimSpace(patient) == "" {
		patient = "your patient"
	}

	subject := fmt.Sprintf("%s: analysis report ready for %s", appName, patient)

	textBody := fmt.Sprintf(`Hi %s,

The final analysis report for %s (session of %s) is ready.
Areas analyzed: %d

View the report:
%s

Thanks,
The %s Team`,
		firstName, patient, data.SessionDate, data.TotalAnalyzedAreas, data.ReportURL, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>The final analysis report for <strong>%s</strong> (session of %s) is ready.</p>
    <p>Areas analyzed: <strong>%d</strong></p>
    <p style="text-align: center; margin: 30px 0;">
        <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">View Report</a>
    </p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">Thanks,<br>The %s Team</p>
</body>
</html>`,
		html.EscapeString(firstName), html.EscapeString(patient), html.EscapeString(data.SessionDate),
		data.TotalAnalyzedAreas, html.EscapeString(data.ReportURL), html.EscapeString(appName))

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

// ReportURL builds the frontend link for a session report.
func ReportURL(baseURL, sessionID string) string {
	return strings.TrimRight(baseURL, "/") + "/analysis/sessions/" + sessionID + "/report"
}
