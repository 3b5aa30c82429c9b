package portal

import "strconv"

// Portal locators. The portal's UI is Thai; the literals below are the
// labels it renders and must match exactly.
var (
	locUsernameField = CSS("#userNameInput")
	locPasswordField = CSS("#passwordInput")
	locLoginSubmit   = CSS("#submitButton")
	locLoginSuccess  = XPath(`//div[contains(., "Web Portal")]`)
	locLoginError    = CSS("#errorText")

	locUserManagementCard = XPath(`//h3[contains(., "จัดการผู้ใช้งาน")]`)
	locListingHeading     = XPath(`//h1[text()="ผู้ใช้งาน"]`)
	locNavHome            = CSS("nav a")
	locTableRow           = CSS("tr.table-body")
	locSearchField        = XPath(`//input[@name="search"]`)
	locFirstRowButton     = CSS("tr.table-body button")

	locAddUserLink      = XPath(`//a[contains(., "เพิ่มผู้ใช้งาน")]`)
	locEmailField       = XPath(`//input[@name="email"]`)
	locDisplayNameField = XPath(`//input[@name="display_name"]`)
	locFirstNameTHField = XPath(`//input[@name="first_name_th"]`)
	locLastNameTHField  = XPath(`//input[@name="last_name_th"]`)
	locFirstNameENField = XPath(`//input[@name="first_name_en"]`)
	locLastNameENField  = XPath(`//input[@name="last_name_en"]`)
	locNationalIDField  = XPath(`//input[@name="id_card_no"]`)
	locSecondaryEmail   = XPath(`//input[@name="secondary_email"]`)
	locContactTab       = XPath(`//p[contains(., "ข้อมูลติดต่อ")]`)
	locTelephoneField   = XPath(`//input[@name="telephone"]`)
	locMobileField      = XPath(`//input[@name="mobile_phone"]`)
	locRoleTab          = XPath(`//p[contains(., "สิทธิ์บทบาท")]`)
	locRoleHeading      = XPath(`//h2[text()="บทบาท"]`)
	locRoleDropdown     = XPath(`//h2[text()="บทบาท"]/..//button`)
	locDefaultRole      = XPath(`//span[text()="Default"]`)
	locCreateButton     = XPath(`//button[contains(., "สร้างผู้ใช้งาน")]`)

	locDialogTitle   = CSS(".dialog-title")
	locDialogMessage = CSS(".dialog-message")
	locDialogOK      = XPath(`//button[contains(., "ตกลง")]`)

	locChangePassword = XPath(`//button[contains(., "เปลี่ยนรหัสผ่าน")]`)
	locConfirmReset   = CSS(".modal-body .btn-primary")
	locIssuedPassword = XPath(`//p[contains(., "รหัสผ่าน: ")]`)
)

const (
	// dialogSuccessTitle is the confirmation dialog title after a successful creation.
	dialogSuccessTitle  = "สำเร็จ"
	// issuedPasswordLabel prefixes the generated password in the reset dialog.
	issuedPasswordLabel = "รหัสผ่าน: "
	loginPath           = "/saml/login"
)

// pageNumberControl locates the pagination button labelled with page n.
func pageNumberControl(n int) Locator {
	return XPath(`//div[text()="` + strconv.Itoa(n) + `"]`)
}
