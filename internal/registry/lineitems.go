package registry

import "github.com/ppiankov/banklab/internal/model"

// lineItems is the standardized bank line-item table.
// Tag order is the resolution priority.
var lineItems = []model.LineItemDefinition{
	// Income statement
	{
		Name:         "total_revenue",
		DisplayName:  "Total Revenue",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:Revenues", "us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax", "us-gaap:SalesRevenueNet", "us-gaap:InterestAndDividendIncomeOperating"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Total revenues including interest and non-interest income",
	},
	{
		Name:         "net_interest_income",
		DisplayName:  "Net Interest Income",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:InterestIncomeExpenseNet", "us-gaap:NetInterestIncome", "us-gaap:InterestIncomeExpenseAfterProvisionForLoanLoss"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Interest income minus interest expense",
	},
	{
		Name:         "noninterest_income",
		DisplayName:  "Non-Interest Income",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:NoninterestIncome", "us-gaap:FeesAndCommissions", "us-gaap:InvestmentBankingRevenue"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Fee income, trading, investment banking, etc.",
	},
	{
		Name:         "provision_for_credit_losses",
		DisplayName:  "Provision for Credit Losses",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:ProvisionForLoanLeaseAndOtherLosses", "us-gaap:ProvisionForLoanAndLeaseLosses", "us-gaap:ProvisionForCreditLosses"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Provision for loan losses and credit impairments",
	},
	{
		Name:         "noninterest_expense",
		DisplayName:  "Non-Interest Expense",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:NoninterestExpense", "us-gaap:OperatingExpenses", "us-gaap:GeneralAndAdministrativeExpense"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Salaries, occupancy, technology, other operating costs",
	},
	{
		Name:         "income_before_tax",
		DisplayName:  "Income Before Tax",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:IncomeLossFromContinuingOperationsBeforeIncomeTaxesExtraordinaryItemsNoncontrollingInterest", "us-gaap:IncomeLossFromContinuingOperationsBeforeIncomeTaxes", "us-gaap:IncomeLossBeforeIncomeTaxes"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Pre-tax income from continuing operations",
	},
	{
		Name:         "income_tax_expense",
		DisplayName:  "Income Tax Expense",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:IncomeTaxExpenseBenefit", "us-gaap:IncomeTaxesPaid"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Current and deferred income tax expense",
	},
	{
		Name:         "net_income",
		DisplayName:  "Net Income",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:NetIncomeLoss", "us-gaap:ProfitLoss", "us-gaap:NetIncomeLossAvailableToCommonStockholdersBasic"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Net income attributable to common shareholders",
	},
	{
		Name:         "comprehensive_income",
		DisplayName:  "Comprehensive Income",
		Category:     model.CategoryIncomeStatement,
		Tags:         []string{"us-gaap:ComprehensiveIncomeNetOfTax", "us-gaap:ComprehensiveIncomeNetOfTaxIncludingPortionAttributableToNoncontrollingInterest"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Net income plus other comprehensive income",
	},

	// Balance sheet: assets
	{
		Name:         "total_assets",
		DisplayName:  "Total Assets",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:Assets"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Total assets",
	},
	{
		Name:         "cash_and_equivalents",
		DisplayName:  "Cash and Cash Equivalents",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:CashAndCashEquivalentsAtCarryingValue", "us-gaap:Cash", "us-gaap:CashCashEquivalentsAndShortTermInvestments"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Cash and liquid assets",
	},
	{
		Name:         "trading_assets",
		DisplayName:  "Trading Assets",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:TradingSecurities", "us-gaap:TradingAssets", "us-gaap:MarketableSecurities"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Securities held for trading",
	},
	{
		Name:         "investment_securities",
		DisplayName:  "Investment Securities",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:AvailableForSaleSecuritiesDebtSecurities", "us-gaap:HeldToMaturitySecurities", "us-gaap:InvestmentsInDebtAndMarketableEquitySecuritiesAndCertainTradingAssetsDisclosureTextBlock"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "AFS and HTM securities",
	},
	{
		Name:         "loans_net",
		DisplayName:  "Loans, Net",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:LoansAndLeasesReceivableNetReportedAmount", "us-gaap:LoansReceivableNet", "us-gaap:LoansAndLeasesReceivableNetOfDeferredIncome"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Net loans after allowance for loan losses",
	},
	{
		Name:         "allowance_for_loan_losses",
		DisplayName:  "Allowance for Loan Losses",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:FinancingReceivableAllowanceForCreditLosses", "us-gaap:AllowanceForLoanAndLeaseLossesRealEstate", "us-gaap:LoansAndLeasesReceivableAllowance"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Reserve for expected credit losses",
	},
	{
		Name:         "goodwill",
		DisplayName:  "Goodwill",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:Goodwill"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Goodwill from acquisitions",
	},
	{
		Name:         "intangible_assets",
		DisplayName:  "Intangible Assets",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:IntangibleAssetsNetExcludingGoodwill", "us-gaap:FiniteLivedIntangibleAssetsNet"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Intangible assets excluding goodwill",
	},

	// Balance sheet: liabilities and equity
	{
		Name:         "total_liabilities",
		DisplayName:  "Total Liabilities",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:Liabilities"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Total liabilities",
	},
	{
		Name:         "total_deposits",
		DisplayName:  "Total Deposits",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:Deposits", "us-gaap:DepositsDomestic"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Customer deposits",
	},
	{
		Name:         "short_term_borrowings",
		DisplayName:  "Short-Term Borrowings",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:ShortTermBorrowings", "us-gaap:CommercialPaper", "us-gaap:FederalFundsPurchasedAndSecuritiesSoldUnderAgreementsToRepurchase"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Short-term debt and repo",
	},
	{
		Name:         "long_term_debt",
		DisplayName:  "Long-Term Debt",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:LongTermDebt", "us-gaap:LongTermDebtNoncurrent", "us-gaap:SeniorNotes"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Long-term debt obligations",
	},
	{
		Name:         "total_equity",
		DisplayName:  "Total Stockholders' Equity",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:StockholdersEquity", "us-gaap:StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Total shareholders' equity",
	},
	{
		Name:         "common_stock",
		DisplayName:  "Common Stock",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:CommonStockValue", "us-gaap:CommonStocksIncludingAdditionalPaidInCapital"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Common stock at par + APIC",
	},
	{
		Name:         "retained_earnings",
		DisplayName:  "Retained Earnings",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:RetainedEarningsAccumulatedDeficit"},
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Accumulated retained earnings",
	},
	{
		Name:         "treasury_stock",
		DisplayName:  "Treasury Stock",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:TreasuryStockValue", "us-gaap:TreasuryStockCommonValue"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Treasury stock at cost",
	},
	{
		Name:         "accumulated_other_comprehensive_income",
		DisplayName:  "AOCI",
		Category:     model.CategoryBalanceSheet,
		Tags:         []string{"us-gaap:AccumulatedOtherComprehensiveIncomeLossNetOfTax"},
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Accumulated other comprehensive income/loss",
	},

	// Shares
	{
		Name:         "shares_outstanding",
		DisplayName:  "Shares Outstanding",
		Category:     model.CategoryShares,
		Tags:         []string{"us-gaap:CommonStockSharesOutstanding", "us-gaap:CommonStockSharesIssued"},
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitShares,
		Description:  "Common shares outstanding",
	},
	{
		Name:         "weighted_avg_shares_basic",
		DisplayName:  "Weighted Avg Shares (Basic)",
		Category:     model.CategoryShares,
		Tags:         []string{"us-gaap:WeightedAverageNumberOfSharesOutstandingBasic"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitShares,
		Description:  "Weighted average shares for basic EPS",
	},
	{
		Name:         "weighted_avg_shares_diluted",
		DisplayName:  "Weighted Avg Shares (Diluted)",
		Category:     model.CategoryShares,
		Tags:         []string{"us-gaap:WeightedAverageNumberOfDilutedSharesOutstanding"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitShares,
		Description:  "Weighted average shares for diluted EPS",
	},

	// Cash flow
	{
		Name:         "operating_cash_flow",
		DisplayName:  "Operating Cash Flow",
		Category:     model.CategoryCashFlow,
		Tags:         []string{"us-gaap:NetCashProvidedByUsedInOperatingActivities"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Net cash from operating activities",
	},
	{
		Name:         "investing_cash_flow",
		DisplayName:  "Investing Cash Flow",
		Category:     model.CategoryCashFlow,
		Tags:         []string{"us-gaap:NetCashProvidedByUsedInInvestingActivities"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Net cash from investing activities",
	},
	{
		Name:         "financing_cash_flow",
		DisplayName:  "Financing Cash Flow",
		Category:     model.CategoryCashFlow,
		Tags:         []string{"us-gaap:NetCashProvidedByUsedInFinancingActivities"},
		IsFlow:       true,
		ExpectedSign: model.SignAny,
		Unit:         model.UnitUSD,
		Description:  "Net cash from financing activities",
	},
	{
		Name:         "dividends_paid",
		DisplayName:  "Dividends Paid",
		Category:     model.CategoryCashFlow,
		Tags:         []string{"us-gaap:PaymentsOfDividendsCommonStock", "us-gaap:PaymentsOfDividends"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Cash dividends paid to shareholders",
	},
	{
		Name:         "share_repurchases",
		DisplayName:  "Share Repurchases",
		Category:     model.CategoryCashFlow,
		Tags:         []string{"us-gaap:PaymentsForRepurchaseOfCommonStock", "us-gaap:StockRepurchasedDuringPeriodValue"},
		IsFlow:       true,
		ExpectedSign: model.SignPositive,
		Unit:         model.UnitUSD,
		Description:  "Cash paid for share buybacks",
	},
}
