package views

import (
	"errors"

	"github.com/wuwenbin0122/lrblog/internal/forms"
	"github.com/wuwenbin0122/lrblog/internal/session"
)

// Notification is the one-shot message shown after a form submission.
type Notification struct {
	Kind    string
	Message string
}

// SignUpView holds the state of the registration form between submissions.
type SignUpView struct {
	session      session.Session
	Form         forms.SignUpForm
	FieldErrors  map[string]string
	Notification *Notification
}

func NewSignUpView(sess session.Session) *SignUpView {
	return &SignUpView{session: sess}
}

func (v *SignUpView) Decide() Decision {
	return GuestGate(v.session)
}

// Submit validates the form. It reports whether the form may be sent; field
// errors are kept for rendering.
func (v *SignUpView) Submit(form forms.SignUpForm) bool {
	form.Normalize()
	v.Form = form
	v.FieldErrors = nil
	v.Notification = nil

	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			v.FieldErrors = verr.Fields
		}
		return false
	}
	return true
}

// Complete records the server's answer. A successful sign-up clears the form.
func (v *SignUpView) Complete(success bool, message string) {
	kind := "error"
	if success {
		kind = "success"
		v.Form = forms.SignUpForm{}
	}
	v.Form.Password = ""
	v.Form.ConfirmPassword = ""
	v.Notification = &Notification{Kind: kind, Message: message}
}

// SignInView holds the state of the sign-in form.
type SignInView struct {
	session      session.Session
	Email        string
	Notification *Notification
}

func NewSignInView(sess session.Session) *SignInView {
	return &SignInView{session: sess}
}

func (v *SignInView) Decide() Decision {
	return GuestGate(v.session)
}

// WriteArticleView guards the article editor.
type WriteArticleView struct {
	session      session.Session
	Form         forms.ArticleForm
	FieldErrors  map[string]string
	Notification *Notification
}

func NewWriteArticleView(sess session.Session) *WriteArticleView {
	return &WriteArticleView{session: sess}
}

func (v *WriteArticleView) Decide() Decision {
	return Gate(v.session)
}

func (v *WriteArticleView) Author() string {
	return v.session.Email()
}

// Submit validates the article form; see SignUpView.Submit.
func (v *WriteArticleView) Submit(form forms.ArticleForm) bool {
	form.Normalize()
	v.Form = form
	v.FieldErrors = nil
	v.Notification = nil

	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			v.FieldErrors = verr.Fields
		}
		return false
	}
	return true
}

func (v *WriteArticleView) Complete(success bool, message string) {
	kind := "error"
	if success {
		kind = "success"
		v.Form = forms.ArticleForm{}
	}
	v.Notification = &Notification{Kind: kind, Message: message}
}
