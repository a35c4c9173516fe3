package forms

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
)

// FieldErrors maps a json field name to an inline message
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_-]*[a-z0-9])?$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("linkurl", func(fl validator.FieldLevel) bool {
		return domain.IsValidURL(domain.FormatURL(strings.TrimSpace(fl.Field().String())))
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// messages are keyed by "field.tag"; unknown pairs fall back to a generic text
var messages = map[string]string{
	"title.required":    "Title is required",
	"url.required":      "URL is required",
	"url.linkurl":       "Please enter a valid URL",
	"price.gte":         "Price cannot be negative",
	"affiliateCode.max": "Affiliate code is too long",
	"title.max":         "Title is too long",
	"bio.max":           "Bio is too long",
	"avatarUrl.url":     "Please enter a valid image URL",
	"username.min":      "Username must be at least 3 characters",
	"username.max":      "Username must be at most 30 characters",
	"username.username": "Username may only contain lowercase letters, numbers, - and _",
	"customDomain.fqdn": "Please enter a valid domain",
	"email.required":    "Email is required",
	"email.email":       "Please enter a valid email",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 8 characters",
}

func toFieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
			out[fe.Field()] = msg
		} else {
			out[fe.Field()] = "Invalid value"
		}
	}
	return out
}

// LinkForm is the add/edit link form
type LinkForm struct {
	Title         string  `json:"title" validate:"required,max=200"`
	URL           string  `json:"url" validate:"required,linkurl"`
	Icon          string  `json:"icon,omitempty"`
	IsPaid        bool    `json:"isPaid,omitempty"`
	Price         float64 `json:"price,omitempty" validate:"gte=0"`
	IsAffiliate   bool    `json:"isAffiliate,omitempty"`
	AffiliateCode string  `json:"affiliateCode,omitempty" validate:"max=64"`
}

// Validate trims the form and returns the link input with a formatted URL
// and derived icon, or FieldErrors
func (f LinkForm) Validate() (domain.LinkInput, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.URL = strings.TrimSpace(f.URL)
	if err := validate.Struct(f); err != nil {
		return domain.LinkInput{}, toFieldErrors(err)
	}
	url := domain.FormatURL(f.URL)
	icon := f.Icon
	if icon == "" {
		icon = domain.IconForURL(url)
	}
	return domain.LinkInput{
		Title:         f.Title,
		URL:           url,
		Icon:          icon,
		IsPaid:        f.IsPaid,
		Price:         f.Price,
		IsAffiliate:   f.IsAffiliate,
		AffiliateCode: f.AffiliateCode,
	}, nil
}

// LinkPatch validates a partial link edit with the same rules as LinkForm
// for the fields it carries.
func LinkPatch(u domain.LinkUpdate) (domain.LinkUpdate, error) {
	errs := FieldErrors{}
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if t == "" {
			errs["title"] = messages["title.required"]
		}
		u.Title = &t
	}
	if u.URL != nil {
		raw := strings.TrimSpace(*u.URL)
		formatted := domain.FormatURL(raw)
		switch {
		case raw == "":
			errs["url"] = messages["url.required"]
		case !domain.IsValidURL(formatted):
			errs["url"] = messages["url.linkurl"]
		}
		u.URL = &formatted
	}
	if u.Price != nil && *u.Price < 0 {
		errs["price"] = messages["price.gte"]
	}
	if len(errs) > 0 {
		return domain.LinkUpdate{}, errs
	}
	return u, nil
}

// ProfileForm edits the display fields of a profile; nil fields are unchanged
type ProfileForm struct {
	Title        *string `json:"title,omitempty" validate:"omitempty,max=100"`
	Bio          *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	AvatarURL    *string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Username     *string `json:"username,omitempty" validate:"omitempty,min=3,max=30,username"`
	CustomDomain *string `json:"customDomain,omitempty" validate:"omitempty,fqdn"`
}

// Validate normalizes the username to lower case and returns the update
func (f ProfileForm) Validate() (domain.ProfileUpdate, error) {
	if f.Username != nil {
		u := strings.ToLower(strings.TrimSpace(*f.Username))
		f.Username = &u
	}
	if f.CustomDomain != nil {
		d := strings.ToLower(strings.TrimSpace(*f.CustomDomain))
		f.CustomDomain = &d
	}
	if err := validate.Struct(f); err != nil {
		return domain.ProfileUpdate{}, toFieldErrors(err)
	}
	return domain.ProfileUpdate{
		Title:        f.Title,
		Bio:          f.Bio,
		AvatarURL:    f.AvatarURL,
		Username:     f.Username,
		CustomDomain: f.CustomDomain,
	}, nil
}

// Credentials is the email/password sign-up and sign-in form
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=30,username"`
}

func (c Credentials) Validate() (Credentials, error) {
	c.Email = strings.TrimSpace(c.Email)
	c.Username = strings.ToLower(strings.TrimSpace(c.Username))
	if err := validate.Struct(c); err != nil {
		return Credentials{}, toFieldErrors(err)
	}
	return c, nil
}

// SuggestUsername derives a valid username candidate from free text
func SuggestUsername(text string) string {
	s := strings.ReplaceAll(domain.Slug(text), "_", "-")
	if len(s) > 30 {
		s = strings.Trim(s[:30], "-")
	}
	if len(s) < 3 || !usernamePattern.MatchString(s) {
		return ""
	}
	return s
}
