package edgar

var formSections = map[DocumentType][]SectionType{
	Form10Q: {
		Form10QPart1Item1,
		Form10QPart1Item2,
		Form10QPart1Item3,
		Form10QPart1Item4,
		Form10QPart2Item1,
		Form10QPart2Item1A,
		Form10QPart2Item2,
		Form10QPart2Item3,
		Form10QPart2Item4,
		Form10QPart2Item5,
		Form10QPart2Item6,
	},
	Form10K: {
		Form10K1,
		Form10K1A,
		Form10K1B,
		Form10K2,
		Form10K3,
		Form10K4,
		Form10K5,
		Form10K6,
		Form10K7,
		Form10K7A,
		Form10K8,
		Form10K9,
		Form10K9A,
		Form10K9B,
		Form10K10,
		Form10K11,
		Form10K12,
		Form10K13,
		Form10K14,
		Form10K15,
	},
	Form8K: {
		Form8KItem101,
		Form8KItem102,
		Form8KItem103,
		Form8KItem104,
		Form8KItem105,
		Form8KItem201,
		Form8KItem202,
		Form8KItem203,
		Form8KItem204,
		Form8KItem205,
		Form8KItem206,
		Form8KItem301,
		Form8KItem302,
		Form8KItem303,
		Form8KItem401,
		Form8KItem402,
		Form8KItem501,
		Form8KItem502,
		Form8KItem503,
		Form8KItem504,
		Form8KItem505,
		Form8KItem506,
		Form8KItem507,
		Form8KItem508,
		Form8KItem601,
		Form8KItem602,
		Form8KItem603,
		Form8KItem604,
		Form8KItem605,
		Form8KItem606,
		Form8KItem610,
		Form8KItem701,
		Form8KItem801,
		Form8KItem901,
		Form8KSignature,
	},
}

var sectionTitles = map[SectionType]string{
	// 10-Q
	Form10QPart1Item1:  "Financial Statements",
	Form10QPart1Item2:  "Management's Discussion and Analysis of Financial Condition and Results of Operations",
	Form10QPart1Item3:  "Quantitative and Qualitative Disclosures About Market Risk",
	Form10QPart1Item4:  "Controls and Procedures",
	Form10QPart2Item1:  "Legal Proceedings",
	Form10QPart2Item1A: "Risk Factors",
	Form10QPart2Item2:  "Unregistered Sales of Equity Securities and Use of Proceeds",
	Form10QPart2Item3:  "Defaults Upon Senior Securities",
	Form10QPart2Item4:  "Mine Safety Disclosures",
	Form10QPart2Item5:  "Other Information",
	Form10QPart2Item6:  "Exhibits",

	// 10-K
	Form10K1:  "Business",
	Form10K1A: "Risk Factors",
	Form10K1B: "Unresolved Staff Comments",
	Form10K2:  "Properties",
	Form10K3:  "Legal Proceedings",
	Form10K4:  "Mine Safety Disclosures",
	Form10K5:  "Market for Registrant’s Common Equity, Related Stockholder Matters and Issuer Purchases of Equity Securities",
	Form10K6:  "Selected Financial Data (prior to February 2021)",
	Form10K7:  "Management’s Discussion and Analysis of Financial Condition and Results of Operations",
	Form10K7A: "Quantitative and Qualitative Disclosures about Market Risk",
	Form10K8:  "Financial Statements and Supplementary Data",
	Form10K9:  "Changes in and Disagreements with Accountants on Accounting and Financial Disclosure",
	Form10K9A: "Controls and Procedures",
	Form10K9B: "Other Information",
	Form10K10: "Directors, Executive Officers and Corporate Governance",
	Form10K11: "Executive Compensation",
	Form10K12: "Security Ownership of Certain Beneficial Owners and Management and Related Stockholder Matters",
	Form10K13: "Certain Relationships and Related Transactions, and Director Independence",
	Form10K14: "Principal Accountant Fees and Services",
	Form10K15: "Section 15 of a 10-K filing",

	// 8-K
	Form8KItem101:   "Entry into a Material Definitive Agreement",
	Form8KItem102:   "Termination of a Material Definitive Agreement",
	Form8KItem103:   "Bankruptcy or Receivership",
	Form8KItem104:   "Mine Safety - Reporting of Shutdowns and Patterns of Violations",
	Form8KItem105:   "Material Cybersecurity Incidents",
	Form8KItem201:   "Completion of Acquisition or Disposition of Assets",
	Form8KItem202:   "Results of Operations and Financial Condition",
	Form8KItem203:   "Creation of a Direct Financial Obligation or an Obligation under an Off-Balance Sheet Arrangement of a Registrant",
	Form8KItem204:   "Triggering Events That Accelerate or Increase a Direct Financial Obligation or an Obligation under an Off-Balance Sheet Arrangement",
	Form8KItem205:   "Costs Associated with Exit or Disposal Activities",
	Form8KItem206:   "Material Impairments",
	Form8KItem301:   "Notice of Delisting or Failure to Satisfy a Continued Listing Rule or Standard; Transfer of Listing",
	Form8KItem302:   "Unregistered Sales of Equity Securities",
	Form8KItem303:   "Material Modification to Rights of Security Holders",
	Form8KItem401:   "Changes in Registrant's Certifying Accountant",
	Form8KItem402:   "Non-Reliance on Previously Issued Financial Statements or a Related Audit Report or Completed Interim Review",
	Form8KItem501:   "Changes in Control of Registrant",
	Form8KItem502:   "Departure of Directors or Certain Officers; Election of Directors; Appointment of Certain Officers: Compensatory Arrangements of Certain Officers",
	Form8KItem503:   "Amendments to Articles of Incorporation or Bylaws; Change in Fiscal Year",
	Form8KItem504:   "Temporary Suspension of Trading Under Registrant's Employee Benefit Plans",
	Form8KItem505:   "Amendments to the Registrant's Code of Ethics, or Waiver of a Provision of the Code of Ethics",
	Form8KItem506:   "Change in Shell Company Status",
	Form8KItem507:   "Submission of Matters to a Vote of Security Holders",
	Form8KItem508:   "Shareholder Director Nominations",
	Form8KItem601:   "ABS Informational and Computational Material",
	Form8KItem602:   "Change of Servicer or Trustee",
	Form8KItem603:   "Change in Credit Enhancement or Other External Support",
	Form8KItem604:   "Failure to Make a Required Distribution",
	Form8KItem605:   "Securities Act Updating Disclosure",
	Form8KItem606:   "Static Pool",
	Form8KItem610:   "Alternative Filings of Asset-Backed Issuers",
	Form8KItem701:   "Regulation FD Disclosure",
	Form8KItem801:   "Other Events",
	Form8KItem901:   "Financial Statements and Exhibits",
	Form8KSignature: "Signature",
}
