package email

import (
	"fmt"
	"html"
)

// TwoFactorChange is the security notice sent when a user turns
// two-factor authentication on or off.
func TwoFactorChange(to, username, appName string, enabled bool) Message {
	state, advice := "disabled", "If you did not do this, reset your password and turn two-factor authentication back on."
	if enabled {
		state, advice = "enabled", "You will be asked for a code from your authenticator app each time you sign in."
	}

	subject := fmt.Sprintf("%s: two-factor authentication %s", appName, state)

	text := fmt.Sprintf(`Hi %s,

Two-factor authentication was %s on your %s account.

%s

- %s`, username, state, appName, advice, appName)

	body := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>%s</title></head>
<body style="margin:0;padding:24px;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;background-color:#fdf6ec;">
<table width="480" cellpadding="0" cellspacing="0" style="margin:0 auto;background-color:#ffffff;border-radius:8px;">
  <tr><td style="padding:32px 40px 8px;"><h1 style="margin:0;font-size:22px;color:#3b2f2f;">Two-factor authentication %s</h1></td></tr>
  <tr><td style="padding:8px 40px;font-size:15px;color:#4a4a68;line-height:1.6;">
    <p>Hi %s,</p>
    <p>Two-factor authentication was <strong>%s</strong> on your %s account.</p>
    <p>%s</p>
  </td></tr>
  <tr><td style="padding:16px 40px;font-size:12px;color:#aaaabc;text-align:center;">&copy; %s</td></tr>
</table>
</body>
</html>`,
		html.EscapeString(subject), state,
		html.EscapeString(username), state, html.EscapeString(appName), advice,
		html.EscapeString(appName))

	return Message{To: to, Subject: subject, HTMLBody: body, TextBody: text}
}
