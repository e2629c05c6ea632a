package workflow

import "fmt"

func msgWelcome() Message {
	return Message{
		Text: "🌐 Welcome to the AirDAO Name Service Bot!\n\n" +
			"Secure your ANS (AirDAO Name Service) identity and handle AMB transactions seamlessly. 💰\n\n" +
			"👇 Use the buttons below to proceed.",
		Mode: ModeHTML,
		Menu: true,
	}
}

func msgUnknownAction() Message {
	return Message{Text: "Unsupported action. Please use the menu buttons.", Menu: true}
}

func msgNotWaiting() Message {
	return Message{Text: "I'm not waiting for any input right now. Please choose an option from the menu.", Menu: true}
}

func msgTransientError() Message {
	return Message{Text: "⚠️ Something went wrong on our side. Please try again in a moment."}
}

func msgFeeNotice() Message {
	return Message{Text: "🪙 Ready to create your unique ANS name?\n\n⚡ Creating a name requires a FEE of 2 AMB."}
}

func msgNamePrompt() Message {
	return Message{
		Text: "📜 Please type the name you want to create in the format `<name>.amb` (e.g., `alice.amb`).",
		Mode: ModeMarkdown,
	}
}

func msgInvalidName() Message {
	return Message{
		Text: "⚠️ Invalid name format. ANS names must end with `.amb` (e.g., `bob.amb`).\n🔁 Please try again.",
		Mode: ModeMarkdown,
	}
}

func msgNameTaken() Message {
	return Message{Text: "❌ The ANS name you entered is already taken. Please choose a different name to secure your spot on the blockchain. 🌐"}
}

func msgPaymentInstructions(name, custodial string) Message {
	return Message{
		Text: fmt.Sprintf("💳 To register the ANS <code>%s</code>, please send 2 AMB to the bot wallet address:\n\n"+
			"<code>%s</code>\n\n"+
			"⏳ Your name registration will be completed once funds are received. 🔒", name, custodial),
		Mode: ModeHTML,
	}
}

func msgRegistrationSuccess(name, payer string) Message {
	return Message{
		Text: fmt.Sprintf("✅ The ANS <code>%s</code> has been successfully created and linked to wallet <code>%s</code>.", name, payer),
		Mode: ModeHTML,
	}
}

func msgRegistrationFailed(err error) Message {
	return Message{Text: fmt.Sprintf("An error occurred: %s", err)}
}

func msgRegistrationTimeout() Message {
	return Message{Text: "Transaction timed out. Please try again."}
}

func msgRecipientPrompt() Message {
	return Message{
		Text: "📜 Enter the recipient's ANS (e.g., `alice.amb`) or wallet address.",
		Mode: ModeMarkdown,
	}
}

func msgRecipientMissing(name string) Message {
	return Message{
		Text: fmt.Sprintf("❌ The ANS <code>%s</code> does not exist in the registry. Please try again.", name),
		Mode: ModeHTML,
	}
}

func msgRecipientInvalid() Message {
	return Message{Text: "❌ Invalid input. Please enter a valid ANS (e.g., `name.amb`) or wallet address.", Mode: ModeMarkdown}
}

func msgProcessingTo(recipient string) Message {
	return Message{
		Text: fmt.Sprintf("✅ Processing transfer to <code>%s</code>.", recipient),
		Mode: ModeHTML,
	}
}

func msgAmountPrompt() Message {
	return Message{Text: "💰 Enter the amount of AMB to transfer."}
}

func msgInvalidAmount() Message {
	return Message{Text: "⚠️ Invalid amount entered! Please provide a valid number of AMB. 💱"}
}

func msgTransferInstructions(amountAMB, custodial string) Message {
	return Message{
		Text: fmt.Sprintf("📥 To complete the transfer, send %s AMB to the bot wallet address:\n\n"+
			"<code>%s</code>\n\n"+
			"⏳ The recipient will be credited on receipt. 🔗", amountAMB, custodial),
		Mode: ModeHTML,
	}
}

func msgTransferSuccess(amountAMB, recipient, txHash string) Message {
	return Message{
		Text: fmt.Sprintf("✅ The transfer of %s AMB to <code>%s</code> was successful! 🎉\n\n"+
			"📜 Transaction hash: <code>%s</code>\n\n"+
			"🔗 Your transaction is now live on the blockchain.", amountAMB, recipient, txHash),
		Mode: ModeHTML,
	}
}

func msgTransferFailed(err error) Message {
	return Message{Text: fmt.Sprintf("⚠️ An error occurred during the transfer: %s.\n\n🔧 Please try again or contact support.", err)}
}

func msgTransferTimeout() Message {
	return Message{Text: "⏳ The transfer session has timed out. 🕒\n\n🔁 Please try again when you're ready."}
}

func msgDecryptPrompt() Message {
	return Message{
		Text: "🔍 Want to find out which wallet is linked to an ANS?\n\n" +
			"📜 Please type the ANS you'd like to decrypt (e.g., `alice.amb`).",
		Mode: ModeMarkdown,
	}
}

func msgDecryptFound(name, addr string) Message {
	return Message{
		Text: fmt.Sprintf("✅ The name <code>%s</code> is linked 🔗 to the wallet address:\n\n<code>%s</code>", name, addr),
		Mode: ModeHTML,
	}
}

func msgDecryptMissing(name string) Message {
	return Message{
		Text: fmt.Sprintf("❓ The name <code>%s</code> does not exist in the registry. 🧐\n\n"+
			"Please double-check the name or try a different one.", name),
		Mode: ModeHTML,
	}
}
