package controls

// Built-in control type names.
const (
	TypeButton             = "button"
	TypeCheckbox           = "checkbox"
	TypeCheckboxCollection = "checkbox-collection"
	TypeDate               = "date"
	TypeDatetimeJS         = "datetime-js"
	TypeEmail              = "email"
	TypeFile               = "file"
	TypeHidden             = "hidden"
	TypeHTML               = "html"
	TypeLabel              = "label"
	TypeNumber             = "number"
	TypePassword           = "password"
	TypeRadio              = "radio"
	TypeRadioCollection    = "radio-collection"
	TypeRepeater           = "repeater"
	TypeSelect             = "select"
	TypeSelectJS           = "select-js"
	TypeSubmit             = "submit"
	TypeTag                = "tag"
	TypeTel                = "tel"
	TypeText               = "text"
	TypeTextarea           = "textarea"
	TypeToggleSwitch       = "toggle-switch"
	TypeURL                = "url"
)

// inputTypes maps control names rendered as <input> to their type attribute.
var inputTypes = map[string]string{
	TypeText:       "text",
	TypeEmail:      "email",
	TypeNumber:     "number",
	TypeTel:        "tel",
	TypeURL:        "url",
	TypeDate:       "date",
	TypeDatetimeJS: "datetime-local",
	TypePassword:   "password",
	TypeHidden:     "hidden",
	TypeFile:       "file",
}
