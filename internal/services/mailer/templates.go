package mailer

import "html/template"

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>Admin login code</h2>
	<p>Use this code to sign in to the website admin panel:</p>
	<p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
	<p>The code expires in {{.ExpiresIn}} and can be used once.</p>
	<p>If you did not try to sign in, you can ignore this email.</p>
</body>
</html>
`))

var inquiryTemplate = template.Must(template.New("inquiry").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>New website inquiry</h2>
	<table cellpadding="4">
		<tr><td><strong>Name</strong></td><td>{{.Inquiry.Name}}</td></tr>
		<tr><td><strong>Email</strong></td><td><a href="mailto:{{.Inquiry.Email}}">{{.Inquiry.Email}}</a></td></tr>
		{{if .Inquiry.Company}}<tr><td><strong>Company</strong></td><td>{{.Inquiry.Company}}</td></tr>{{end}}
		{{if .Inquiry.Phone}}<tr><td><strong>Phone</strong></td><td>{{.Inquiry.Phone}}</td></tr>{{end}}
		{{if .Inquiry.Service}}<tr><td><strong>Service</strong></td><td>{{.Inquiry.Service}}</td></tr>{{end}}
		{{if .Office}}<tr><td><strong>Office</strong></td><td>{{.Office}}</td></tr>{{end}}
		{{if .Inquiry.Subject}}<tr><td><strong>Subject</strong></td><td>{{.Inquiry.Subject}}</td></tr>{{end}}
	</table>
	<p style="white-space: pre-wrap;">{{.Inquiry.Message}}</p>
</body>
</html>
`))

var applicationTemplate = template.Must(template.New("application").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2>New application for {{.Career.Title}}</h2>
	<table cellpadding="4">
		<tr><td><strong>Name</strong></td><td>{{.Application.Name}}</td></tr>
		<tr><td><strong>Email</strong></td><td><a href="mailto:{{.Application.Email}}">{{.Application.Email}}</a></td></tr>
		{{if .Application.Phone}}<tr><td><strong>Phone</strong></td><td>{{.Application.Phone}}</td></tr>{{end}}
		{{with .Application.Resume}}<tr><td><strong>Resume</strong></td><td><a href="{{.URL}}">{{if .Filename}}{{.Filename}}{{else}}Download{{end}}</a></td></tr>{{end}}
	</table>
	{{if .Application.Message}}<p style="white-space: pre-wrap;">{{.Application.Message}}</p>{{end}}
</body>
</html>
`))
