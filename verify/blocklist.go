package verify

// blockedDomains covers known disposable-mail providers plus reserved and test
// domains. Loaded once at process start; membership is advisory policy, not a
// statement about technical deliverability.
var blockedDomains = map[string]struct{}{}

func init() {
	for _, domain := range []string{
		// Reserved / test
		"example.com", "example.org", "example.net", "test.com", "localhost", "invalid",
		// Popular disposable services
		"mailinator.com", "guerrillamail.com", "guerrillamail.org", "sharklasers.com",
		"grr.la", "guerrillamail.biz", "guerrillamail.de", "guerrillamail.net",
		"yopmail.com", "yopmail.fr", "yopmail.net", "cool.fr.nf", "jetable.fr.nf",
		"tempmail.com", "temp-mail.org", "temp-mail.io", "tempail.com",
		"10minutemail.com", "10minutemail.net", "10minemail.com", "10mail.org",
		"throwaway.email", "throwawaymail.com", "fakeinbox.com", "fakemailgenerator.com",
		"trashmail.com", "trashmail.net", "trashmail.org", "trashemail.de",
		"getnada.com", "nada.email", "emailondeck.com", "spamgourmet.com",
		"mailnesia.com", "mailcatch.com", "mailslurp.com", "maildrop.cc",
		"discard.email", "discardmail.com", "spamfree24.org", "spambox.us",
		"mytrashmail.com", "mt2015.com", "thankyou2010.com", "spam4.me",
		"binkmail.com", "safetymail.info", "spamobox.com", "tempinbox.com",
		"mailforspam.com", "tempr.email", "fakemail.net", "mohmal.com",
		"emailfake.com", "crazymailing.com", "tempsky.com", "tempmailaddress.com",
		"burnermail.io", "imgv.de", "trash-mail.at", "wegwerfmail.de",
		"wegwerfmail.net", "wegwerfmail.org", "sofort-mail.de", "spoofmail.de",
		"meltmail.com", "mintemail.com", "tempmailo.com", "emailsensei.com",
		"armyspy.com", "cuvox.de", "dayrep.com", "einrot.com", "fleckens.hu",
		"gustr.com", "jourrapide.com", "rhyta.com", "superrito.com", "teleworm.us",
		"inboxkitten.com", "33mail.com", "anonaddy.com", "simplelogin.io",
	} {
		blockedDomains[domain] = struct{}{}
	}
}

// roleAccounts lists generic organizational local parts that rarely belong to a
// person reachable through a portfolio contact form.
var roleAccounts = map[string]struct{}{
	"admin":     {},
	"support":   {},
	"info":      {},
	"sales":     {},
	"marketing": {},
	"webmaster": {},
	"contact":   {},
}

// IsBlockedDomain reports whether the domain is disposable or reserved.
func IsBlockedDomain(domain string) bool {
	_, ok := blockedDomains[domain]
	return ok
}

// IsRoleAccount reports whether the local part is a role-style account name.
func IsRoleAccount(localPart string) bool {
	_, ok := roleAccounts[localPart]
	return ok
}
