package verification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// Both bodies must state the same facts: the code, the 10-minute expiry, the
// security caution and the ignore-if-unsolicited note.

const htmlBody = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
.container { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 40px 20px; border-radius: 10px; text-align: center; }
.content { background: white; padding: 30px; border-radius: 8px; margin: 20px 0; }
h1 { color: white; margin: 10px 0; font-size: 28px; }
.code-container { background: #f0f4ff; border: 3px solid #667eea; border-radius: 10px; padding: 20px; margin: 30px 0; }
.code { font-size: 48px; font-weight: bold; letter-spacing: 10px; color: #667eea; font-family: 'Courier New', monospace; }
.info { color: #666; font-size: 14px; margin-top: 20px; }
.warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin-top: 20px; text-align: left; }
.footer { color: white; margin-top: 20px; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
<h1>NDC95 Verification Code</h1>
<div class="content">
<h2>Welcome Notredamian!</h2>
<p>Your verification code is:</p>
<div class="code-container"><div class="code">{{.Code}}</div></div>
<p class="info">This code will expire in <strong>10 minutes</strong>.<br>Please enter it in the app to continue.</p>
<div class="warning">
<strong>Security Notice:</strong>
<ul style="margin: 10px 0; padding-left: 20px;">
<li>Never share this code with anyone</li>
<li>NDC95 staff will never ask for your code</li>
<li>If you didn't request this code, please ignore this email</li>
</ul>
</div>
</div>
<div class="footer">
<p>Notre Dame College, Dhaka - Batch 1995</p>
<p>This is an automated message, please do not reply.</p>
</div>
</div>
</body>
</html>
`

const textBody = `Your NDC95 verification code is: {{.Code}}

This code will expire in 10 minutes.

Never share this code with anyone; NDC95 staff will never ask for it.
If you didn't request this code, please ignore this email.

Notre Dame College, Dhaka - Batch 1995
`

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(textBody))
)

// renderMessage produces the notification subject and both body forms for a
// verification code.
func renderMessage(code string) (subject, html, text string, err error) {
	data := struct{ Code string }{Code: code}

	var hb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("render html body: %w", err)
	}
	var tb bytes.Buffer
	if err := textTmpl.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("render text body: %w", err)
	}

	subject = fmt.Sprintf("Your NDC95 Verification Code: %s", code)
	return subject, hb.String(), tb.String(), nil
}
