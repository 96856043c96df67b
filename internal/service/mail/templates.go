package mail

import "html/template"

const baseStyle = `
body { font-family: 'Roboto', Verdana, sans-serif; }
.code { font-size: 24px; font-weight: bold; color: #007bff; padding: 10px;
        background-color: #f8f9fa; border-radius: 5px; text-align: center; margin: 20px 0; }`

var templates = template.Must(template.New("verification").Parse(`<html lang="en" dir="ltr">
<head><title>Verification Code</title><style>` + baseStyle + `</style></head>
<body>
<h2>Hello {{.Username}},</h2>
<p>Thank you for registering. Please use the following verification code to complete your registration:</p>
<div class="code">{{.Code}}</div>
<p>This code will expire in {{.ValidFor}}.</p>
<p>If you did not request this code, please ignore this email.</p>
<hr/>
<p>Do not share this code with anyone else.</p>
<p>Regards,</p>
<p><b>Ghost Note</b></p>
</body>
</html>`))

func init() {
	template.Must(templates.New("reset").Parse(`<html lang="en" dir="ltr">
<head><title>Password Reset OTP</title><style>` + baseStyle + `</style></head>
<body>
<h2>Hello {{.Username}},</h2>
<p>You have requested to reset your password. Please use the following OTP to proceed:</p>
<div class="code">{{.Code}}</div>
<p>This OTP will expire in {{.ValidFor}}.</p>
<p>If you didn't request this password reset, please ignore this email.</p>
<hr/>
<p>Do not share this OTP with anyone else, it's highly confidential.</p>
<p>Regards,</p>
<p><b>Ghost Note</b></p>
</body>
</html>`))
}

type templateData struct {
	Username string
	Code     string
	ValidFor string
}
