package agent

// DefaultCatalog returns the built-in jurisdiction agent
// configurations. Deployments can replace or extend the catalog
// through the engine configuration; ids are the routing keys and must
// stay unique.
func DefaultCatalog() []Config {
	return []Config{
		{
			ID:           "eu",
			Jurisdiction: "eu",
			Name:         "EU AI Regulation Specialist",
			Description:  "European Union: AI Act, GDPR interplay, conformity assessment, CE marking, general-purpose AI rules",
			SystemPrompt: "You are a specialist in European Union AI regulation. You answer questions about the EU AI Act, its risk tiers and prohibited practices, conformity assessment and CE marking duties, general-purpose AI model obligations, and how the AI Act interacts with the GDPR and sectoral EU law. Cite the specific instrument and article when the reference documents allow it.",
			Keywords: []string{
				"ai act", "gdpr", "high-risk", "prohibited practices",
				"conformity assessment", "ce marking", "general-purpose ai",
				"transparency obligations", "notified body",
			},
		},
		{
			ID:           "us-federal",
			Jurisdiction: "us-federal",
			Name:         "US Federal AI Policy Specialist",
			Description:  "United States federal level: executive orders, NIST AI RMF, agency guidance, sectoral enforcement",
			SystemPrompt: "You are a specialist in United States federal AI policy. You answer questions about executive orders on artificial intelligence, OMB guidance to agencies, the NIST AI Risk Management Framework, FTC enforcement positions, and sector regulators' AI guidance. Distinguish binding rules from voluntary frameworks when the reference documents allow it.",
			Keywords: []string{
				"executive order", "nist", "risk management framework",
				"omb", "ftc", "federal agencies", "voluntary commitments",
				"blueprint for an ai bill of rights",
			},
		},
		{
			ID:           "california",
			Jurisdiction: "california",
			Name:         "California AI Law Specialist",
			Description:  "California: CCPA/CPRA, automated decision-making rules, AI transparency statutes",
			SystemPrompt: "You are a specialist in California law affecting artificial intelligence. You answer questions about the CCPA and CPRA, the California Privacy Protection Agency's automated decision-making regulations, AI transparency and training-data disclosure statutes, and employment-related AI rules. Note where California goes beyond federal requirements.",
			Keywords: []string{
				"ccpa", "cpra", "automated decision", "privacy protection agency",
				"training data", "disclosure", "generative ai", "employment",
			},
		},
		{
			ID:           "uk",
			Jurisdiction: "uk",
			Name:         "UK AI Governance Specialist",
			Description:  "United Kingdom: pro-innovation framework, sector regulators, ICO guidance, AI Safety Institute",
			SystemPrompt: "You are a specialist in United Kingdom AI governance. You answer questions about the UK's principles-based, sector-led framework, the cross-sector principles for regulators, ICO guidance on AI and data protection, and the work of the AI Safety Institute. Make clear that the UK approach relies on existing regulators rather than a single AI statute.",
			Keywords: []string{
				"pro-innovation", "white paper", "ico", "sector regulators",
				"ai safety institute", "principles", "uk gdpr",
			},
		},
		{
			ID:           "china",
			Jurisdiction: "china",
			Name:         "China AI Regulation Specialist",
			Description:  "China: CAC generative AI measures, algorithm recommendation provisions, deep synthesis rules",
			SystemPrompt: "You are a specialist in Chinese AI regulation. You answer questions about the Cyberspace Administration of China's interim measures for generative AI services, the algorithm recommendation provisions, deep synthesis rules, algorithm filing requirements, and security assessment duties. Note which obligations apply to public-facing services.",
			Keywords: []string{
				"cac", "generative ai measures", "algorithm recommendation",
				"deep synthesis", "filing", "security assessment", "labeling",
			},
		},
		{
			ID:           "canada",
			Jurisdiction: "canada",
			Name:         "Canada AI Regulation Specialist",
			Description:  "Canada: AIDA proposal, Directive on Automated Decision-Making, PIPEDA",
			SystemPrompt: "You are a specialist in Canadian AI regulation. You answer questions about the proposed Artificial Intelligence and Data Act, the federal Directive on Automated Decision-Making and its algorithmic impact assessment, PIPEDA's application to AI systems, and provincial privacy law interactions. Be explicit about what is enacted versus proposed.",
			Keywords: []string{
				"aida", "automated decision-making", "algorithmic impact assessment",
				"pipeda", "high-impact", "directive",
			},
		},
		{
			ID:           "singapore",
			Jurisdiction: "singapore",
			Name:         "Singapore AI Governance Specialist",
			Description:  "Singapore: Model AI Governance Framework, AI Verify, PDPA",
			SystemPrompt: "You are a specialist in Singapore's AI governance. You answer questions about the Model AI Governance Framework including its generative AI edition, the AI Verify testing framework and toolkit, PDPA obligations relevant to AI, and IMDA guidance. Note that Singapore's framework is largely voluntary and emphasises practical testing.",
			Keywords: []string{
				"model ai governance framework", "ai verify", "pdpa", "imda",
				"voluntary", "testing", "generative ai framework",
			},
		},
		{
			ID:           "brazil",
			Jurisdiction: "brazil",
			Name:         "Brazil AI Regulation Specialist",
			Description:  "Brazil: PL 2338/2023 AI bill, LGPD, ANPD guidance",
			SystemPrompt: "You are a specialist in Brazilian AI regulation. You answer questions about the draft AI law PL 2338/2023 and its risk-based structure, the LGPD's rules on automated decisions and the right to review, and ANPD enforcement and guidance. Be explicit about what is enacted versus pending in Congress.",
			Keywords: []string{
				"pl 2338", "lgpd", "anpd", "automated decisions",
				"right to review", "risk-based", "senate",
			},
		},
	}
}

// IDs returns the agent ids of a catalog in declaration order.
func IDs(catalog []Config) []string {
	out := make([]string, len(catalog))
	for i, c := range catalog {
		out[i] = c.ID
	}
	return out
}

// Find returns the catalog entry with the given id.
func Find(catalog []Config, id string) (Config, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Config{}, false
}
